package handler

import (
	"net/http"

	"github.com/juicedollar/protocol-api/internal/prices"
)

func ListPrices(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := s.List()
		if list == nil {
			list = []prices.Entry{}
		}
		writeJSON(w, list)
	}
}

func PriceMapping(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.Mapping())
	}
}

func MintERC20(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mint := s.Mint()
		if mint == nil {
			notReady(w)
			return
		}
		writeJSON(w, mint)
	}
}

func PoolShareERC20(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.PoolShareToken())
	}
}

func CollateralERC20(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.Collateral())
	}
}

func PoolSharePrice(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.PoolSharePrice())
	}
}

func EuroPrice(s *prices.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.EuroPrice())
	}
}
