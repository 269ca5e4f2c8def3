package registry

// Defaults returns the compiled-in model table. Operators may extend
// it with a YAML overlay (see internal/config), but these five entries
// are always present unless explicitly overridden by an overlay alias
// of the same name.
func Defaults() []ModelSpec {
	return []ModelSpec{
		{
			Alias:       "paraformer",
			ModelID:     "iic/speech_seaco_paraformer_large_asr_nat-zh-cn-16k-common-vocab8404-pytorch",
			EngineKind:  EngineFunASR,
			Description: "Mandarin + speaker diarization (FunASR). Best for multi-speaker podcasts.",
			Capabilities: Capabilities{
				Timestamp:      true,
				Diarization:    true,
				EmotionTags:    false,
				LanguageDetect: true,
			},
		},
		{
			Alias:       "qwen3-asr-mini",
			ModelID:     "mlx-community/Qwen3-ASR-1.7B-4bit",
			EngineKind:  EngineMLX,
			Description: "Fast & light Qwen3 ASR (4-bit). Best for single-speaker, low latency.",
			Capabilities: Capabilities{
				Timestamp:      true,
				Diarization:    false,
				EmotionTags:    false,
				LanguageDetect: true,
			},
		},
		{
			Alias:       "qwen3-asr",
			ModelID:     "mlx-community/Qwen3-ASR-1.7B-8bit",
			EngineKind:  EngineMLX,
			Description: "Qwen3 ASR (8-bit, higher accuracy).",
			Capabilities: Capabilities{
				Timestamp:      true,
				Diarization:    false,
				EmotionTags:    false,
				LanguageDetect: true,
			},
		},
		{
			Alias:       "parakeet",
			ModelID:     "mlx-community/parakeet-tdt-0.6b-v2",
			EngineKind:  EngineMLX,
			Description: "NVIDIA Parakeet (English only, very fast). Short clips only — OOM on files > ~5 min (known issue, unfixed).",
			Capabilities: Capabilities{
				Timestamp:      true,
				Diarization:    false,
				EmotionTags:    false,
				LanguageDetect: false,
			},
		},
		{
			Alias:       "sensevoice-small",
			ModelID:     "iic/SenseVoiceSmall",
			EngineKind:  EngineFunASR,
			Description: "SenseVoice Small — fastest model (80-85x realtime). Best for bulk speed-first processing, language detection, emotion tagging. Not recommended when transcription quality on mixed-language or proper nouns matters.",
			Capabilities: Capabilities{
				Timestamp:      false,
				Diarization:    false,
				EmotionTags:    true,
				LanguageDetect: true,
			},
		},
	}
}
