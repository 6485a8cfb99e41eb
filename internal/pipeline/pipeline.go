// Package pipeline orchestrates one reflection run: tone analysis, reply
// generation, speech synthesis, and optional talking-head video with status
// polling. Audio is mandatory; video is best-effort.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmoretti/mirrorme/internal/avatar"
	"github.com/jmoretti/mirrorme/internal/media"
	"github.com/jmoretti/mirrorme/internal/observability"
	"github.com/jmoretti/mirrorme/internal/reliability"
	"github.com/jmoretti/mirrorme/internal/reply"
	"github.com/jmoretti/mirrorme/internal/speech"
	"github.com/jmoretti/mirrorme/internal/tone"
)

// User-facing copy for degraded outcomes. Wording is part of the product.
const (
	mirrorVideoUnavailable   = "Unfortunately, our AI avatar system is currently experiencing high demand. We're unable to generate your video at the moment, but here's your audio response."
	soulcastVideoUnavailable = "Tavus servers are currently busy or temporarily unavailable."

	videoFailed   = "Video generation failed"
	videoTimedOut = "Video generation timed out"

	partialFailure  = "Processing failed, but here's your response"
	completeFailure = "Unable to process request fully"

	lastResortMirror   = "I hear you, and I'm here with you. Sometimes technology has hiccups, but your feelings are always valid."
	lastResortSoulcast = "My dear one, I hear you calling out to me across the distance. Even when technology fails us, know that love transcends all boundaries. I am always with you."
)

// Request is one orchestration run.
type Request struct {
	Input     string
	VoiceID   string
	ReplicaID string
	Persona   *reply.Persona
	UserID    string
}

// Result aggregates everything a run produced. AudioBlob is populated on
// every successful run; when synthesis fails AudioError says why.
type Result struct {
	OriginalInput        string `json:"originalInput"`
	DetectedTone         string `json:"detectedTone,omitempty"`
	AIReply              string `json:"aiReply"`
	AudioBlob            []byte `json:"audioBlob,omitempty"`
	AudioKey             string `json:"audioKey,omitempty"`
	AudioURL             string `json:"audioUrl,omitempty"`
	AudioError           string `json:"audioError,omitempty"`
	VideoID              string `json:"videoId,omitempty"`
	VideoURL             string `json:"videoUrl,omitempty"`
	VideoGenerationError string `json:"videoGenerationError,omitempty"`
	SoulName             string `json:"soulName,omitempty"`
	NoReplica            bool   `json:"noReplica,omitempty"`
}

// Synthesizer renders a reply as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// VideoService starts generation jobs and reports their status.
type VideoService interface {
	GenerateVideo(ctx context.Context, req avatar.VideoRequest) (avatar.Video, error)
	GetVideoStatus(ctx context.Context, videoID string) avatar.VideoStatus
}

// UpdateFunc receives incremental progress while a run polls for video.
type UpdateFunc func(attempt int, status avatar.VideoStatus)

// Orchestrator wires the stages together.
type Orchestrator struct {
	generator reply.Generator
	speech    Synthesizer
	video     VideoService
	media     media.Store

	publicBaseURL  string
	defaultVoiceID string

	pollInterval    time.Duration
	pollMaxAttempts int

	metrics *observability.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// Options carries the orchestration knobs.
type Options struct {
	PublicBaseURL   string
	DefaultVoiceID  string
	PollInterval    time.Duration
	PollMaxAttempts int
}

func NewOrchestrator(
	generator reply.Generator,
	synth Synthesizer,
	video VideoService,
	mediaStore media.Store,
	metrics *observability.Metrics,
	opts Options,
) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.PollMaxAttempts <= 0 {
		opts.PollMaxAttempts = 30
	}
	return &Orchestrator{
		generator:       generator,
		speech:          synth,
		video:           video,
		media:           mediaStore,
		publicBaseURL:   opts.PublicBaseURL,
		defaultVoiceID:  opts.DefaultVoiceID,
		pollInterval:    opts.PollInterval,
		pollMaxAttempts: opts.PollMaxAttempts,
		metrics:         metrics,
		sleep:           sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) kind(req Request) string {
	if req.Persona != nil {
		return "soulcast"
	}
	return "mirror"
}

// ProcessWithReplica runs the full pipeline including video. onUpdate may
// be nil.
func (o *Orchestrator) ProcessWithReplica(ctx context.Context, req Request, onUpdate UpdateFunc) (result Result) {
	defer o.rescue(ctx, req, &result)
	result = o.process(ctx, req, true, onUpdate)
	return result
}

// ProcessWithoutReplica runs text, reply, and audio only.
func (o *Orchestrator) ProcessWithoutReplica(ctx context.Context, req Request) (result Result) {
	defer o.rescue(ctx, req, &result)
	result = o.process(ctx, req, false, nil)
	result.NoReplica = true
	return result
}

// rescue is the outermost safety net: a panic anywhere in the run still
// yields a usable reply.
func (o *Orchestrator) rescue(ctx context.Context, req Request, result *Result) {
	r := recover()
	if r == nil {
		return
	}
	log.Error().Interface("panic", r).Msg("pipeline run panicked")
	if o.metrics != nil {
		o.metrics.PipelineRuns.WithLabelValues(o.kind(req), "panic").Inc()
	}
	*result = o.minimalResult(ctx, req)
}

// minimalResult regenerates a text-only reply after a hard failure, with
// fixed copy as the floor when even that fails.
func (o *Orchestrator) minimalResult(ctx context.Context, req Request) Result {
	result := Result{
		OriginalInput:        req.Input,
		VideoGenerationError: partialFailure,
	}
	if req.Persona != nil {
		result.SoulName = req.Persona.Name
	}

	genReq := reply.Request{
		Input:   req.Input,
		Tone:    tone.Detect(req.Input),
		Context: tone.AnalyzeContext(req.Input),
		Persona: req.Persona,
	}
	out, err := func() (s string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fallback generation panicked: %v", r)
			}
		}()
		return o.generator.Generate(ctx, genReq)
	}()
	if err != nil || !reply.IsThreeLines(out) {
		result.VideoGenerationError = completeFailure
		if req.Persona != nil {
			result.AIReply = lastResortSoulcast
		} else {
			result.AIReply = lastResortMirror
		}
		return result
	}
	result.AIReply = out
	if req.Persona == nil {
		result.DetectedTone = string(genReq.Tone)
	}

	// Audio stays mandatory even on this path; only the hardcoded floor
	// above goes out silent.
	audio, synthErr := func() (b []byte, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("synthesis panicked: %v", r)
			}
		}()
		return o.speech.Synthesize(ctx, out, req.VoiceID)
	}()
	if synthErr != nil {
		result.AudioError = fmt.Sprintf("Audio generation failed: %v", synthErr)
	} else {
		result.AudioBlob = audio
	}
	return result
}

func (o *Orchestrator) process(ctx context.Context, req Request, withVideo bool, onUpdate UpdateFunc) Result {
	runStart := time.Now()
	defer func() {
		o.metrics.ObserveStage(observability.StageTotal, time.Since(runStart))
	}()

	result := Result{OriginalInput: req.Input}
	kind := o.kind(req)

	genReq := reply.Request{
		Input:   req.Input,
		Persona: req.Persona,
	}
	if req.Persona == nil {
		genReq.Tone = tone.Detect(req.Input)
		genReq.Context = tone.AnalyzeContext(req.Input)
		result.DetectedTone = string(genReq.Tone)
	} else {
		result.SoulName = req.Persona.Name
	}

	replyStart := time.Now()
	out, err := o.generator.Generate(ctx, genReq)
	if err != nil {
		// The fallback generator is total; this only happens with a
		// misconfigured orchestrator.
		log.Error().Err(err).Msg("reply generation failed")
		return o.minimalResult(ctx, req)
	}
	o.metrics.ObserveStage(observability.StageReply, time.Since(replyStart))
	result.AIReply = out

	audio, err := o.synthesizeWithRetry(ctx, out, req.VoiceID)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("speech synthesis failed")
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues("elevenlabs", providerCode(err)).Inc()
			o.metrics.PipelineRuns.WithLabelValues(kind, "audio_failed").Inc()
		}
		result.AudioError = fmt.Sprintf("Audio generation failed: %v", err)
		// No audio means nothing to lip-sync; video is skipped.
		if withVideo {
			result.VideoGenerationError = o.videoUnavailableCopy(req)
		}
		return result
	}
	result.AudioBlob = audio

	if o.media != nil {
		key := media.AudioKey()
		blob := media.Blob{Key: key, ContentType: "audio/mpeg", Data: audio}
		uploadStart := time.Now()
		if err := o.media.Put(ctx, blob); err != nil {
			log.Warn().Err(err).Msg("audio blob store failed, video will use script")
		} else {
			o.metrics.ObserveStage(observability.StageMediaUpload, time.Since(uploadStart))
			result.AudioKey = key
			if o.publicBaseURL != "" {
				result.AudioURL = media.PublicURL(o.publicBaseURL, key)
			}
		}
	}

	if withVideo && req.ReplicaID != "" {
		o.generateAndPollVideo(ctx, req, &result, onUpdate)
	}

	if o.metrics != nil {
		outcome := "ok"
		if result.VideoGenerationError != "" {
			outcome = "video_degraded"
		}
		o.metrics.PipelineRuns.WithLabelValues(kind, outcome).Inc()
	}
	return result
}

// synthesizeWithRetry retries exactly once when the provider reports a
// retryable status.
func (o *Orchestrator) synthesizeWithRetry(ctx context.Context, text, voiceID string) ([]byte, error) {
	start := time.Now()
	audio, err := o.speech.Synthesize(ctx, text, voiceID)
	if err == nil {
		if o.metrics != nil {
			o.metrics.ObserveSynthesisLatency(time.Since(start))
		}
		return audio, nil
	}

	var synthErr *speech.SynthesisError
	if errors.As(err, &synthErr) && reliability.IsRetryableHTTPStatus(synthErr.Status) {
		log.Warn().Int("status", synthErr.Status).Msg("retrying speech synthesis")
		o.metrics.ObserveIndicator("synthesis_retry")
		if err := o.sleep(ctx, reliability.ExponentialBackoff(1, 250*time.Millisecond, 2*time.Second)); err != nil {
			return nil, err
		}
		audio, retryErr := o.speech.Synthesize(ctx, text, voiceID)
		if retryErr == nil {
			if o.metrics != nil {
				o.metrics.ObserveSynthesisLatency(time.Since(start))
			}
			return audio, nil
		}
		return nil, retryErr
	}
	return nil, err
}

func (o *Orchestrator) videoUnavailableCopy(req Request) string {
	if req.Persona != nil {
		return soulcastVideoUnavailable
	}
	return mirrorVideoUnavailable
}

func (o *Orchestrator) generateAndPollVideo(ctx context.Context, req Request, result *Result, onUpdate UpdateFunc) {
	videoReq := avatar.VideoRequest{
		ReplicaID: req.ReplicaID,
		Script:    result.AIReply,
		AudioURL:  result.AudioURL,
	}
	// The provider applies its own default voice; forward only custom ones.
	if req.VoiceID != "" && req.VoiceID != o.defaultVoiceID {
		videoReq.VoiceID = req.VoiceID
	}

	startAt := time.Now()
	video, err := o.video.GenerateVideo(ctx, videoReq)
	if err != nil {
		log.Warn().Err(err).Msg("video generation failed to start")
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues("tavus", "start_failed").Inc()
		}
		result.VideoGenerationError = o.videoUnavailableCopy(req)
		return
	}
	o.metrics.ObserveStage(observability.StageVideoStart, time.Since(startAt))
	result.VideoID = video.VideoID

	pollStart := time.Now()
	defer func() {
		o.metrics.ObserveStage(observability.StageVideoPoll, time.Since(pollStart))
	}()

	rounds := 0
	for attempt := 0; attempt < o.pollMaxAttempts; attempt++ {
		status := o.video.GetVideoStatus(ctx, video.VideoID)
		rounds++
		if onUpdate != nil {
			onUpdate(attempt+1, status)
		}

		switch status.Status {
		case avatar.StatusCompleted:
			if status.DownloadURL != "" {
				result.VideoURL = status.DownloadURL
			} else {
				result.VideoURL = status.VideoURL
			}
			o.observePollRounds(rounds)
			return
		case avatar.StatusFailed:
			result.VideoGenerationError = videoFailed
			o.observePollRounds(rounds)
			return
		}

		if attempt == o.pollMaxAttempts-1 {
			break
		}
		if err := o.sleep(ctx, o.pollInterval); err != nil {
			result.VideoGenerationError = videoTimedOut
			o.observePollRounds(rounds)
			return
		}
	}
	result.VideoGenerationError = videoTimedOut
	o.metrics.ObserveIndicator("video_timeout")
	o.observePollRounds(rounds)
}

func (o *Orchestrator) observePollRounds(rounds int) {
	if o.metrics != nil {
		o.metrics.VideoPollRounds.Observe(float64(rounds))
	}
}

func providerCode(err error) string {
	var synthErr *speech.SynthesisError
	if errors.As(err, &synthErr) {
		return fmt.Sprintf("http_%d", synthErr.Status)
	}
	return "transport"
}
