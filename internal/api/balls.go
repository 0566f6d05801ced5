package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/dispatch"
)

// ballResponse is a ball state with its display colour.
type ballResponse struct {
	device.DeviceState
	Hex   string `json:"hex"`
	Bound bool   `json:"bound"`
}

func newBallResponse(s device.DeviceState) ballResponse {
	return ballResponse{DeviceState: s, Hex: s.Color.Hex(), Bound: s.Bound()}
}

// addressRequest is the body of PUT /balls/{id}/address.
type addressRequest struct {
	Address *string `json:"address"`
}

// colorRequest is the body of POST /balls/{id}/color. Color takes
// precedence over the separate channels.
type colorRequest struct {
	Color string `json:"color,omitempty"`
	R     *int   `json:"r,omitempty"`
	G     *int   `json:"g,omitempty"`
	B     *int   `json:"b,omitempty"`
}

func (req colorRequest) toColor() (ball.Color, error) {
	if req.Color != "" {
		return ball.ParseColor(req.Color)
	}
	if req.R == nil || req.G == nil || req.B == nil {
		return ball.Color{}, errors.New("color or r, g and b are required")
	}
	return ball.Color{R: *req.R, G: *req.G, B: *req.B}, nil
}

// colorResponse is the body of a successful colour command.
type colorResponse struct {
	Ball       int        `json:"ball"`
	Address    string     `json:"address"`
	Color      ball.Color `json:"color"`
	Hex        string     `json:"hex"`
	Outcome    string     `json:"outcome"`
	Message    string     `json:"message"`
	DurationMS int64      `json:"duration_ms"`
}

func newColorResponse(res dispatch.Result) colorResponse {
	return colorResponse{
		Ball:       int(res.DeviceID),
		Address:    res.Address,
		Color:      res.Color,
		Hex:        res.Color.Hex(),
		Outcome:    res.Outcome(),
		Message:    res.Message,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// parseBallID reads the {id} path parameter.
func parseBallID(r *http.Request) (device.DeviceID, error) {
	return device.ParseDeviceID(chi.URLParam(r, "id"))
}

func (s *Server) handleListBalls(w http.ResponseWriter, _ *http.Request) {
	states := s.dispatcher.States()
	out := make([]ballResponse, 0, len(states))
	for _, st := range states {
		out = append(out, newBallResponse(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"balls": out, "count": len(out)})
}

func (s *Server) handleGetBall(w http.ResponseWriter, r *http.Request) {
	id, err := parseBallID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	st, ok := s.dispatcher.State(id)
	if !ok {
		writeNotFound(w, fmt.Sprintf("ball %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, newBallResponse(st))
}

func (s *Server) handleBindAddress(w http.ResponseWriter, r *http.Request) {
	id, err := parseBallID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Address == nil {
		writeBadRequest(w, "address is required")
		return
	}

	if err := s.dispatcher.BindAddress(id, *req.Address); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	st, _ := s.dispatcher.State(id)
	writeJSON(w, http.StatusOK, newBallResponse(st))
}

// handleSendColor dispatches one colour command and waits for its result.
func (s *Server) handleSendColor(w http.ResponseWriter, r *http.Request) {
	id, err := parseBallID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, dispatch.OutcomeInvalidArgument,
			fmt.Sprintf("Invalid ball id %q: ids must be positive.", chi.URLParam(r, "id")))
		return
	}

	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	c, err := req.toColor()
	if err != nil {
		writeError(w, http.StatusBadRequest, dispatch.OutcomeInvalidArgument,
			fmt.Sprintf("Invalid color for ball %d: %v.", id, err))
		return
	}

	res := <-s.dispatcher.SendColorCommand(r.Context(), id, c)
	if !res.OK() {
		writeError(w, statusForResult(res), res.Outcome(), res.Message)
		return
	}

	writeJSON(w, http.StatusOK, newColorResponse(res))
}

// statusForResult maps a failed dispatch result to an HTTP status.
func statusForResult(res dispatch.Result) int {
	switch res.Outcome() {
	case dispatch.OutcomeNoAddress:
		return http.StatusConflict
	case dispatch.OutcomeInvalidArgument:
		return http.StatusBadRequest
	case dispatch.OutcomeTimedOut:
		return http.StatusGatewayTimeout
	case dispatch.OutcomeClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseBallID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command history is not available")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
	}

	entries, err := s.history.List(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing command history failed", "ball", int(id), "error", err)
		writeInternalError(w, "failed to list command history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ball": int(id), "history": entries, "count": len(entries)})
}
