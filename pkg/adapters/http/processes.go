package http

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/aretw0/atsim"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/stream"
	"github.com/go-chi/render"
)

// maxDelayMS is the largest delay_ms that still fits a time.Duration.
const maxDelayMS = int64(math.MaxInt64 / int64(time.Millisecond))

// newProcess builds the public view of p. Snapshot uses the same encoding as
// the live streams.
func newProcess(p *domain.Process) (*Process, error) {
	resp := &Process{
		Id:          p.ID,
		OwnerId:     p.OwnerID,
		ModelId:     p.ModelID,
		Name:        p.Name,
		State:       p.State,
		CurrentTick: p.CurrentTick,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		FaultReason: p.FaultReason,
	}
	if p.Snapshot != nil {
		data, err := stream.Encode(p.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("encoding snapshot of %s: %w", p.ID, err)
		}
		resp.Snapshot = data
	}
	return resp, nil
}

func (s *Server) renderProcess(w http.ResponseWriter, r *http.Request, status int, p *domain.Process) {
	resp, err := newProcess(p)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// delayFrom converts delay_ms, rejecting values a time.Duration cannot hold.
func delayFrom(ms int64) (time.Duration, error) {
	if ms < 0 || ms > maxDelayMS {
		return 0, fmt.Errorf("%w: delay_ms must be between 0 and %d", domain.ErrInvalidArgument, maxDelayMS)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// CreateProcess handles POST /processes.
func (s *Server) CreateProcess(w http.ResponseWriter, r *http.Request) {
	var body CreateProcessJSONRequestBody
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		s.renderError(w, r, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err))
		return
	}

	p, err := s.svc.Create(r.Context(), ownerFrom(r.Context()), body.ModelId, body.Name)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderProcess(w, r, http.StatusCreated, p)
}

// ListProcesses handles GET /processes.
func (s *Server) ListProcesses(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	out := make([]*Process, 0, len(list))
	for _, p := range list {
		resp, err := newProcess(p)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		out = append(out, resp)
	}
	render.JSON(w, r, out)
}

// GetProcess handles GET /processes/{id}.
func (s *Server) GetProcess(w http.ResponseWriter, r *http.Request, id ProcessId) {
	p, err := s.svc.Get(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderProcess(w, r, http.StatusOK, p)
}

// RunProcess handles POST /processes/{id}/run.
func (s *Server) RunProcess(w http.ResponseWriter, r *http.Request, id ProcessId) {
	var body RunProcessJSONRequestBody
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		s.renderError(w, r, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err))
		return
	}
	delay, err := delayFrom(body.DelayMs)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	p, err := s.svc.Run(r.Context(), ownerFrom(r.Context()), id, atsim.RunRequest{
		Ticks: body.Ticks,
		Delay: delay,
		Wait:  body.Wait,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderProcess(w, r, http.StatusOK, p)
}

// PauseProcess handles POST /processes/{id}/pause.
func (s *Server) PauseProcess(w http.ResponseWriter, r *http.Request, id ProcessId) {
	p, err := s.svc.Pause(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderProcess(w, r, http.StatusOK, p)
}

// KillProcess handles POST /processes/{id}/kill.
func (s *Server) KillProcess(w http.ResponseWriter, r *http.Request, id ProcessId) {
	p, err := s.svc.Kill(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.renderProcess(w, r, http.StatusOK, p)
}

// DeleteProcess handles DELETE /processes/{id}.
func (s *Server) DeleteProcess(w http.ResponseWriter, r *http.Request, id ProcessId) {
	if err := s.svc.Delete(r.Context(), ownerFrom(r.Context()), id); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
