package remote

import (
	"fmt"
	"io"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Serve answers one Push session against store: for every frameProbe it
// reports whether the object is already present, for every frameObject
// it writes the object in, and it collects frameRef updates into the
// map it returns once the peer signals frameDone.
//
// It is transport-agnostic; client.go and server.go wire rw to an
// ssh.Session's combined stdin/stdout.
func Serve(store *objstore.Store, rw io.ReadWriter) (refs map[string]ids.Hash, err error) {
	fw := newWriter(rw)
	fr := newReader(rw)
	refs = make(map[string]ids.Hash)

	for {
		f, err := fr.readFrame()
		if err != nil {
			return nil, fmt.Errorf("remote: serve: %w", err)
		}
		switch f.Type {
		case frameProbe:
			has := hasObject(store, f.Ref)
			reply := frameHave
			if !has {
				reply = frameWant
			}
			if err := fw.writeFrame(frame{Type: reply, Ref: f.Ref}); err != nil {
				return nil, err
			}
		case frameObject:
			if err := storeObject(store, f.Ref.Kind, f.Ref.ID, f.Payload); err != nil {
				return nil, err
			}
		case frameRef:
			refs[f.RefName] = f.Ref.ID
		case frameDone:
			return refs, nil
		default:
			return nil, fmt.Errorf("remote: serve: unexpected frame type %d", f.Type)
		}
	}
}

func hasObject(store *objstore.Store, ref objectRef) bool {
	switch ref.Kind {
	case objstore.KindFileBlob:
		return store.HasFile(ref.ID)
	case objstore.KindSymlinkBlob:
		return store.HasSymlink(ref.ID)
	case objstore.KindTree:
		return store.HasTree(ref.ID)
	case objstore.KindCommit:
		return store.HasCommit(ref.ID)
	case objstore.KindConflictBlob:
		return store.HasConflict(ref.ID)
	default:
		return false
	}
}

func storeObject(store *objstore.Store, kind objstore.Kind, id ids.Hash, payload []byte) error {
	switch kind {
	case objstore.KindFileBlob:
		gotID, _, err := store.WriteFile(newByteReader(payload))
		if err != nil {
			return err
		}
		return checkID(kind, id, gotID)
	case objstore.KindSymlinkBlob:
		gotID, err := store.WriteSymlink(string(payload))
		if err != nil {
			return err
		}
		return checkID(kind, id, gotID)
	case objstore.KindTree:
		tree, err := object.DecodeTree(payload)
		if err != nil {
			return err
		}
		gotID, err := store.WriteTree(tree)
		if err != nil {
			return err
		}
		return checkID(kind, id, gotID)
	case objstore.KindCommit:
		c, err := object.Decode(id, payload)
		if err != nil {
			return err
		}
		gotID, err := store.WriteCommit(c)
		if err != nil {
			return err
		}
		return checkID(kind, id, gotID)
	case objstore.KindConflictBlob:
		blob, err := object.DecodeConflictBlob(payload)
		if err != nil {
			return err
		}
		gotID, err := store.WriteConflict(blob)
		if err != nil {
			return err
		}
		return checkID(kind, id, gotID)
	default:
		return fmt.Errorf("remote: store object: unknown kind %q", kind)
	}
}

func checkID(kind objstore.Kind, want, got ids.Hash) error {
	if want != got {
		return fmt.Errorf("remote: received %s content hashed to %s, expected %s", kind, got, want)
	}
	return nil
}

type byteReader struct {
	b []byte
	i int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
