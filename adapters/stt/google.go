package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/veloute/server/domain/repositories"
)

// minClipBytes is the smallest clip worth sending to the recognizer.
// Anything shorter than ~100ms of 16kHz LINEAR16 audio is noise.
const minClipBytes = 3200

// GoogleTranscriber implements Transcriber on Google Cloud Speech-to-Text.
// Each call opens a streaming recognize session, sends the whole clip, and
// waits for the final result.
type GoogleTranscriber struct {
	// AlternativeLanguages are offered to the recognizer alongside the
	// configured language so the detected language can differ from it.
	AlternativeLanguages []string
}

var _ repositories.Transcriber = (*GoogleTranscriber)(nil)

func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (repositories.Transcription, error) {
	var empty repositories.Transcription

	if len(audio) == 0 {
		return empty, repositories.ErrEmptyAudio
	}
	if len(audio) < minClipBytes {
		return empty, repositories.ErrAudioTooShort
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return empty, fmt.Errorf("%w: %v", repositories.ErrSpeechBackendUnavailable, err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return empty, fmt.Errorf("%w: %v", repositories.ErrSpeechBackendUnavailable, err)
	}

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		return empty, err
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:                 encoding,
		SampleRateHertz:          int32(config.SampleRate),
		LanguageCode:             languageCode(config.Language),
		AlternativeLanguageCodes: g.AlternativeLanguages,
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:          recognitionConfig,
				InterimResults:  false, // We only want final results
				SingleUtterance: true,  // Treat as single utterance
			},
		},
	}); err != nil {
		stream.CloseSend()
		return empty, fmt.Errorf("%w: %v", repositories.ErrSpeechBackendUnavailable, err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	}); err != nil {
		stream.CloseSend()
		return empty, fmt.Errorf("%w: %v", repositories.ErrSpeechBackendUnavailable, err)
	}

	if err := stream.CloseSend(); err != nil {
		return empty, fmt.Errorf("%w: %v", repositories.ErrSpeechBackendUnavailable, err)
	}

	return collectFinalResult(ctx, stream, config.Language)
}

// collectFinalResult drains the response stream, keeping the best final
// alternative and the language the recognizer attached to it.
func collectFinalResult(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, fallbackLanguage string) (repositories.Transcription, error) {
	var (
		transcript string
		language   = fallbackLanguage
	)

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return repositories.Transcription{}, ctx.Err()
			}
			return repositories.Transcription{}, fmt.Errorf("%w: %v", repositories.ErrSpeechBackendUnavailable, err)
		}

		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				transcript = result.Alternatives[0].Transcript
				if result.LanguageCode != "" {
					language = result.LanguageCode
				}
			}
		}
	}

	if strings.TrimSpace(transcript) == "" {
		return repositories.Transcription{}, repositories.ErrUnintelligibleAudio
	}

	return repositories.Transcription{
		Text:     transcript,
		Language: baseLanguage(language),
	}, nil
}

// languageCode widens a bare language tag to the BCP-47 code the API expects.
func languageCode(language string) string {
	switch language {
	case "", "en":
		return "en-US"
	case "fr":
		return "fr-FR"
	default:
		return language
	}
}

// baseLanguage narrows a BCP-47 code back to the bare tag the rest of the
// pipeline works with.
func baseLanguage(code string) string {
	if i := strings.IndexByte(code, '-'); i > 0 {
		return strings.ToLower(code[:i])
	}
	return strings.ToLower(code)
}

// audioEncoding converts string encoding to Google Speech API enum
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
