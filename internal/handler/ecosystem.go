package handler

import (
	"net/http"

	"github.com/juicedollar/protocol-api/internal/ecosystem"
)

func PoolSharesInfo(s *ecosystem.PoolSharesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := s.Info()
		if info == nil {
			notReady(w)
			return
		}
		writeJSON(w, info)
	}
}

func PoolSharesTotalSupply(s *ecosystem.PoolSharesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Info() == nil {
			notReady(w)
			return
		}
		writeJSON(w, map[string]float64{"totalSupply": s.TotalSupply()})
	}
}
