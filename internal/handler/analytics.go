package handler

import (
	"errors"
	"net/http"

	"github.com/juicedollar/protocol-api/internal/analytics"
)

func Exposure(s *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expo, err := s.Exposure()
		if err != nil {
			if errors.Is(err, analytics.ErrNotReady) {
				notReady(w)
				return
			}
			http.Error(w, `{"error":"exposure computation failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, expo)
	}
}

func Earnings(s *analytics.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		breakdown, err := s.Earnings()
		if err != nil {
			if errors.Is(err, analytics.ErrNotReady) {
				notReady(w)
				return
			}
			http.Error(w, `{"error":"earnings reconciliation failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, breakdown)
	}
}
