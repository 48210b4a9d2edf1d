package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/whisperd/whisperd/internal/engine"
)

// parseBool coerces a multipart field value to a boolean using the spec's
// fixed truth table (case-insensitive, surrounding space trimmed):
// true|1|yes|y yield true and false|0|no|n yield false. For anything else
// ok is false and the caller leaves the field unset — user input is never
// trusted to abort a request (spec §7).
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	}
	return false, false
}

// overlayParams applies the recognized multipart fields from spec §6.1 onto
// base, silently keeping the prior value for any field that fails to parse.
func overlayParams(r *http.Request, base engine.Params) engine.Params {
	p := base

	if v := r.FormValue("offset_n"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.OffsetN = n
		}
	}
	if v := r.FormValue("offset_t"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.OffsetMs = n
		}
	}
	if v := r.FormValue("duration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.DurationMs = n
		}
	}
	if v := r.FormValue("max_context"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxTextCtx = n
		}
	}
	if v := r.FormValue("max_len"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxLen = n
		}
	}
	if v := r.FormValue("best_of"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.BestOf = n
		}
	}
	if v := r.FormValue("beam_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.BeamSize = n
		}
	}
	if v := r.FormValue("audio_ctx"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.AudioCtx = n
		}
	}
	if v := r.FormValue("word_thold"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.WordThold = float32(f)
		}
	}
	if v := r.FormValue("entropy_thold"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.EntropyThold = float32(f)
		}
	}
	if v := r.FormValue("logprob_thold"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.LogprobThold = float32(f)
		}
	}
	if v := r.FormValue("temperature"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.Temperature = float32(f)
		}
	}
	if v := r.FormValue("temperature_inc"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.TemperatureInc = float32(f)
		}
	}
	if v, ok := parseBool(r.FormValue("debug_mode")); ok {
		p.DebugMode = v
	}
	if v, ok := parseBool(r.FormValue("translate")); ok {
		p.Translate = v
	}
	if v, ok := parseBool(r.FormValue("diarize")); ok {
		p.Diarize = v
	}
	if v, ok := parseBool(r.FormValue("tinydiarize")); ok {
		p.Tinydiarize = v
	}
	if v, ok := parseBool(r.FormValue("split_on_word")); ok {
		p.SplitOnWord = v
	}
	if v, ok := parseBool(r.FormValue("no_timestamps")); ok {
		p.NoTimestamps = v
	}
	if v := r.FormValue("language"); v != "" {
		p.Language = v
	}
	if v, ok := parseBool(r.FormValue("detect_language")); ok {
		p.DetectLanguage = v
	}
	if v := r.FormValue("prompt"); v != "" {
		p.InitialPrompt = v
	}
	if v, ok := parseBool(r.FormValue("suppress_non_speech")); ok {
		p.SuppressNST = v
	}
	if v, ok := parseBool(r.FormValue("suppress_nst")); ok {
		p.SuppressNST = v
	}

	return p
}
