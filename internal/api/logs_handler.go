package api

import (
	"net/http"
	"sort"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
)

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := append([]common.LogEntry(nil), common.LogEntries()...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Time.Equal(entries[j].Time) {
			if entries[i].Component == entries[j].Component {
				return entries[i].Message < entries[j].Message
			}
			return entries[i].Component < entries[j].Component
		}
		return entries[i].Time.Before(entries[j].Time)
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
