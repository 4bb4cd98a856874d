package server

import "time"

// Status is a point-in-time view of the server for the admin API
type Status struct {
	Running       bool      `json:"running"`
	State         string    `json:"state"`
	Mode          string    `json:"mode"`
	Channel       string    `json:"channel"`
	IntervalMs    int64     `json:"interval_ms"`
	Connected     bool      `json:"connected"`
	SessionID     string    `json:"session_id,omitempty"`
	Sessions      uint64    `json:"sessions"`
	FramesSent    uint64    `json:"frames_sent"`
	BytesSent     uint64    `json:"bytes_sent"`
	LastFrameAt   time.Time `json:"last_frame_at,omitzero"`
	LastTypeCount int       `json:"last_type_count"`
}

// Status returns the current observable state
func (s *Server) Status() Status {
	st := Status{
		Running:    s.IsRunning(),
		State:      s.State().String(),
		Mode:       s.Mode().String(),
		Channel:    s.opener.Describe(),
		IntervalMs: s.intervalMs.Load(),
		Sessions:   s.sessions.Load(),
		FramesSent: s.framesSent.Load(),
		BytesSent:  s.bytesSent.Load(),
	}

	s.activeMu.Lock()
	st.Connected = s.active != nil && s.active.IsConnected()
	st.SessionID = s.sessionID
	st.LastFrameAt = s.lastFrame
	st.LastTypeCount = s.lastTypes
	s.activeMu.Unlock()

	return st
}
