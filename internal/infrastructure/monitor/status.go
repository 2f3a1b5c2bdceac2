package monitor

import "time"

// Status is the last observed state of every dependency.
type Status struct {
	Online     bool            `json:"online"`
	Components map[string]bool `json:"components"`
	Spool      bool            `json:"spool"`
	SpoolSize  int             `json:"spool_size"`
	LastCheck  time.Time       `json:"last_check"`
}
