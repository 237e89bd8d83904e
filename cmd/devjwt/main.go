package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/jwttoken"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/config"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/logging"
)

// Dev-only token minting helper.
//
// It signs HS256 access tokens with the same JWT_* settings the api reads, so a token
// minted here is accepted by a locally running api:
//
//	devjwt -sub <user id>          print one token
//	devjwt -addr :5556             serve GET /token?sub=<user id>

func main() {
	sub := flag.String("sub", "", "subject (user id) to mint a token for")
	addr := flag.String("addr", "", "serve tokens over HTTP on this address instead of printing one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.JWT.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid auth config: %v\n", err)
		os.Exit(1)
	}
	tok := jwttoken.New(cfg.JWT)

	if *addr == "" {
		if strings.TrimSpace(*sub) == "" {
			fmt.Fprintln(os.Stderr, "missing -sub")
			os.Exit(2)
		}
		t, err := tok.Issue(context.Background(), strings.TrimSpace(*sub))
		if err != nil {
			fmt.Fprintf(os.Stderr, "mint token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(t.AccessToken)
		return
	}

	logger, err := logging.New(cfg.LogLevel, "console", "devjwt")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		s := strings.TrimSpace(r.URL.Query().Get("sub"))
		if s == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		t, err := tok.Issue(r.Context(), s)
		if err != nil {
			logger.Error("mint token", zap.Error(err))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": t.AccessToken,
			"expiresAt":   t.ExpiresAt.Format(time.RFC3339),
		})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("devjwt listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}
