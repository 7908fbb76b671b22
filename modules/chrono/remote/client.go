package remote

import (
	"fmt"
	"io"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
	"golang.org/x/crypto/ssh"
)

// Client is an authenticated connection to one remote host, grounded on
// pkg/transport/ssh's client/Command split: dial once, then open one
// session per Push/Fetch so each sync runs over its own pipe.
type Client struct {
	conn *ssh.Client
}

// Dial opens an ssh connection to addr ("host:port") authenticating as
// user with the given signers. Host key verification is the caller's
// responsibility via hostKeyCallback (use ssh.FixedHostKey or a
// knownhosts callback in production; ssh.InsecureIgnoreHostKey only for
// local testing).
func Dial(addr, user string, signers []ssh.Signer, hostKeyCallback ssh.HostKeyCallback) (*Client, error) {
	auths := make([]ssh.AuthMethod, 0, 1)
	if len(signers) > 0 {
		auths = append(auths, ssh.PublicKeys(signers...))
	}
	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// sessionPipe runs cmd in a fresh session and returns a ReadWriter over
// its stdin/stdout, plus a done func that must be called (after the
// protocol exchange finishes) to wait for the session to exit cleanly.
func (c *Client) sessionPipe(cmd string) (io.ReadWriter, func() error, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return nil, nil, err
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	if err := session.Start(cmd); err != nil {
		session.Close()
		return nil, nil, err
	}
	rw := &pipeReadWriter{r: stdout, w: stdin}
	done := func() error {
		_ = stdin.Close()
		err := session.Wait()
		_ = session.Close()
		return err
	}
	return rw, done, nil
}

// PushTo sends every object reachable from heads that repo does not
// already have on the remote, then updates repo's refs to match heads.
func (c *Client) PushTo(repo string, store *objstore.Store, heads map[string]ids.Hash) error {
	rw, done, err := c.sessionPipe("receive " + repo)
	if err != nil {
		return err
	}
	if err := Push(store, rw, heads); err != nil {
		return err
	}
	return done()
}

// FetchFrom pulls every object the remote's current refs need that
// store does not already have, writing them into store, and returns the
// remote's ref name to commit id map as observed at the end of the
// exchange.
func (c *Client) FetchFrom(repo string, store *objstore.Store) (map[string]ids.Hash, error) {
	rw, done, err := c.sessionPipe("upload " + repo)
	if err != nil {
		return nil, err
	}
	refs, err := Serve(store, rw)
	if err != nil {
		return nil, err
	}
	if err := done(); err != nil {
		return nil, err
	}
	return refs, nil
}

// pipeReadWriter joins an ssh.Session's separate stdin/stdout pipes into
// one io.ReadWriter, which is all protocol.go's frame reader/writer need.
type pipeReadWriter struct {
	r io.Reader
	w io.Writer
}

func (p *pipeReadWriter) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeReadWriter) Write(b []byte) (int, error) { return p.w.Write(b) }
