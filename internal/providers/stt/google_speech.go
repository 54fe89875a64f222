package stt

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// SpeechOptions tunes recognition for short spoken questions from the device.
type SpeechOptions struct {
	SampleRateHz  int32    // LINEAR16 input rate, default 16000
	Phrases       []string // recognition hints, boosted
	MinConfidence float64  // below this the utterance is treated as noise
}

// ScenePhrases are the openers people use when asking about their surroundings.
var ScenePhrases = []string{
	"what is in front of me",
	"what do you see",
	"describe",
	"read this",
	"where am I",
	"what changed",
}

type GoogleSpeech struct {
	c    *speech.Client
	opts SpeechOptions
}

func NewGoogleSpeech(ctx context.Context, opts SpeechOptions) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if opts.SampleRateHz <= 0 {
		opts.SampleRateHz = 16000
	}
	return &GoogleSpeech{c: c, opts: opts}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) recognitionConfig(language string) *speechpb.RecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            g.opts.SampleRateHz,
		LanguageCode:               NormalizeLanguage(language),
		EnableAutomaticPunctuation: true,
		Model:                      "command_and_search",
		MaxAlternatives:            3,
	}
	if len(g.opts.Phrases) > 0 {
		rc.SpeechContexts = []*speechpb.SpeechContext{{Phrases: g.opts.Phrases, Boost: 10}}
	}
	return rc
}

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if len(audio) == 0 {
		return "", 0, ErrNoSpeech
	}
	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: g.recognitionConfig(language),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return "", 0, err
	}
	return pickTranscript(resp.GetResults(), g.opts.MinConfidence)
}

// pickTranscript keeps the most confident alternative; a question is one utterance.
func pickTranscript(results []*speechpb.SpeechRecognitionResult, minConf float64) (string, float64, error) {
	text, conf := "", -1.0
	for _, r := range results {
		for _, alt := range r.GetAlternatives() {
			c := float64(alt.GetConfidence())
			if alt.GetTranscript() != "" && c > conf {
				text, conf = alt.GetTranscript(), c
			}
		}
	}
	if text == "" || conf < minConf {
		return "", 0, ErrNoSpeech
	}
	return text, conf, nil
}
