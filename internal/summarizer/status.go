package summarizer

import (
	"sort"
	"time"

	"sumd/internal/profile"
	"sumd/pkg/types"
)

// Status builds a detailed status response for /status.
func (s *Service) Status() types.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := types.StatusResponse{
		Engine:         s.cfg.EngineName,
		Meter:          s.cfg.Recorder.MeterName(),
		WeightsPath:    s.weightsPath,
		LastError:      s.lastErr,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	if s.cfg.Weights != nil {
		resp.Reconstructions = s.cfg.Weights.Reconstructions()
	}
	loading, ready, failed := 0, 0, 0
	resp.Profiles = make([]types.ProfileStatus, 0, len(s.handles))
	for _, h := range s.handles {
		ps := types.ProfileStatus{
			Profile:   h.profile.Name,
			State:     string(h.state),
			Device:    string(h.device),
			Requests:  h.requests.Load(),
			Fallbacks: h.fallbacks.Load(),
			Error:     h.err,
		}
		if !h.lastUsed.IsZero() {
			ps.LastUsed = h.lastUsed.Unix()
		}
		if sl := s.slots[string(h.device)]; sl != nil {
			ps.QueueLen = len(sl.queueCh)
			ps.Inflight = len(sl.genCh)
			ps.MaxQueueDepth = cap(sl.queueCh)
		} else {
			ps.MaxQueueDepth = s.cfg.MaxQueueDepth
		}
		switch h.state {
		case StateLoading:
			loading++
		case StateReady:
			ready++
		case StateError:
			failed++
		}
		resp.Profiles = append(resp.Profiles, ps)
	}
	sort.Slice(resp.Profiles, func(i, j int) bool { return resp.Profiles[i].Profile < resp.Profiles[j].Profile })
	switch {
	case s.state == StateClosed:
		resp.State = string(StateClosed)
	case failed > 0 && ready == 0:
		resp.State = string(StateError)
	case loading > 0:
		resp.State = string(StateLoading)
	default:
		resp.State = string(StateReady)
	}
	return resp
}

// Profiles describes the configured profiles, sorted by name.
func (s *Service) Profiles() []types.ProfileInfo {
	list := s.cfg.Profiles.List()
	out := make([]types.ProfileInfo, 0, len(list))
	for _, p := range list {
		out = append(out, ProfileInfo(p))
	}
	return out
}

// ProfileInfo converts a profile to its API description.
func ProfileInfo(p profile.Profile) types.ProfileInfo {
	d := p.Decode
	return types.ProfileInfo{
		Name:              p.Name,
		Precision:         string(p.Precision),
		Device:            string(p.Device),
		DoSample:          d.DoSample,
		NumBeams:          d.NumBeams,
		Temperature:       d.Temperature,
		TopP:              d.TopP,
		RepetitionPenalty: d.RepetitionPenalty,
		NoRepeatNgramSize: d.NoRepeatNgramSize,
		MinNewTokens:      d.MinNewTokens,
		MaxNewTokens:      d.MaxNewTokens,
		Truncation:        string(p.Truncation.Mode),
		MaxInputTokens:    p.MaxInputTokens,
	}
}

// Response converts r to its API form.
func (r Result) Response() types.SummarizeResponse {
	return types.SummarizeResponse{
		Summary:   r.Summary,
		WordCount: r.WordCount,
		LatencyMS: r.LatencyMS,
		EnergyWh:  r.EnergyWh,
		Profile:   r.Profile,
		Device:    string(r.Device),
		Optimized: r.Profile == profile.Optimized,
		Fallback:  r.Fallback,
	}
}

// Response converts c to its API form.
func (c Comparison) Response() types.CompareResponse {
	return types.CompareResponse{
		RunID:               c.RunID,
		Baseline:            c.Baseline.Response(),
		Optimized:           c.Optimized.Response(),
		LatencyReductionPct: c.LatencyReductionPct,
		EnergyReductionPct:  c.EnergyReductionPct,
	}
}
