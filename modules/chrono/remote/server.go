package remote

import (
	"fmt"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// ServerConfig configures a listening peer. AuthorizedKeys restricts
// which public keys may open a session; an empty slice accepts any key,
// suitable only for trusted networks or local testing.
type ServerConfig struct {
	Addr            string
	HostKey         []byte
	AuthorizedKeys  []ssh.PublicKey
	RepositoryStore func(repo string) (*objstore.Store, error)
	Heads           func(repo string) (map[string]ids.Hash, error)
	UpdateRefs      func(repo string, refs map[string]ids.Hash) error
}

// ListenAndServe blocks, accepting sessions of the form
// `ssh remote-host upload <repo>` (client fetches) or
// `ssh remote-host receive <repo>` (client pushes), each resolved
// through RepositoryStore and dispatched to Push or Serve accordingly.
func ListenAndServe(cfg ServerConfig) error {
	srv := &ssh.Server{
		Addr: cfg.Addr,
		Handler: func(s ssh.Session) {
			handleSession(cfg, s)
		},
	}
	if len(cfg.AuthorizedKeys) > 0 {
		srv.PublicKeyHandler = func(ctx ssh.Context, key ssh.PublicKey) bool {
			for _, k := range cfg.AuthorizedKeys {
				if ssh.KeysEqual(k, key) {
					return true
				}
			}
			return false
		}
	}
	if len(cfg.HostKey) > 0 {
		signer, err := gossh.ParsePrivateKey(cfg.HostKey)
		if err != nil {
			return fmt.Errorf("remote: parse host key: %w", err)
		}
		srv.AddHostKey(signer)
	}
	return srv.ListenAndServe()
}

func handleSession(cfg ServerConfig, s ssh.Session) {
	cmd := s.Command()
	if len(cmd) != 2 || (cmd[0] != "upload" && cmd[0] != "receive") {
		fmt.Fprintln(s.Stderr(), "remote: expected \"upload <repo>\" or \"receive <repo>\"")
		_ = s.Exit(2)
		return
	}
	verb, repo := cmd[0], cmd[1]

	store, err := cfg.RepositoryStore(repo)
	if err != nil {
		fmt.Fprintf(s.Stderr(), "remote: %v\n", err)
		_ = s.Exit(1)
		return
	}

	switch verb {
	case "upload":
		heads, err := cfg.Heads(repo)
		if err != nil {
			fmt.Fprintf(s.Stderr(), "remote: %v\n", err)
			_ = s.Exit(1)
			return
		}
		if err := Push(store, s, heads); err != nil {
			fmt.Fprintf(s.Stderr(), "remote: %v\n", err)
			_ = s.Exit(1)
			return
		}
	case "receive":
		refs, err := Serve(store, s)
		if err != nil {
			fmt.Fprintf(s.Stderr(), "remote: %v\n", err)
			_ = s.Exit(1)
			return
		}
		if err := cfg.UpdateRefs(repo, refs); err != nil {
			fmt.Fprintf(s.Stderr(), "remote: %v\n", err)
			_ = s.Exit(1)
			return
		}
	}
	_ = s.Exit(0)
}
