package remote

import (
	"fmt"
	"io"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/object"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

// Push sends every object reachable from heads that the peer does not
// already have, then updates refs (name to commit id) on the peer side.
// It walks commits, then each commit's tree recursively, probing before
// sending so unchanged ancestry costs one round trip per object rather
// than a full retransmission.
func Push(store *objstore.Store, rw io.ReadWriter, heads map[string]ids.Hash) error {
	fw := newWriter(rw)
	fr := newReader(rw)
	sent := make(map[ids.Hash]bool)

	for _, id := range heads {
		if err := pushCommit(store, fw, fr, sent, id); err != nil {
			return fmt.Errorf("remote: push: %w", err)
		}
	}
	for name, id := range heads {
		if err := fw.writeFrame(frame{Type: frameRef, RefName: name, Ref: objectRef{ID: id}}); err != nil {
			return err
		}
	}
	if err := fw.writeFrame(frame{Type: frameDone}); err != nil {
		return err
	}
	return nil
}

func pushCommit(store *objstore.Store, fw *writer, fr *reader, sent map[ids.Hash]bool, id ids.Hash) error {
	if id == object.RootCommitID || sent[id] {
		return nil
	}
	c, err := store.ReadCommit(id)
	if err != nil {
		return err
	}
	for _, p := range c.Parents {
		if err := pushCommit(store, fw, fr, sent, p); err != nil {
			return err
		}
	}
	for _, t := range c.TreeIDs() {
		if err := pushTree(store, fw, fr, sent, t); err != nil {
			return err
		}
	}
	return pushObject(fw, fr, sent, objstore.KindCommit, id, c.Encode())
}

func pushTree(store *objstore.Store, fw *writer, fr *reader, sent map[ids.Hash]bool, id ids.Hash) error {
	if id == objstore.EmptyTreeID || sent[id] {
		return nil
	}
	tree, err := store.ReadTree(id)
	if err != nil {
		return err
	}
	for _, e := range tree.Entries {
		switch e.Value.Kind {
		case object.KindTree:
			if err := pushTree(store, fw, fr, sent, e.Value.TreeID); err != nil {
				return err
			}
		case object.KindFile:
			if err := pushBlob(store, fw, fr, sent, e.Value.FileID); err != nil {
				return err
			}
		case object.KindSymlink:
			if err := pushSymlink(store, fw, fr, sent, e.Value.SymlinkID); err != nil {
				return err
			}
		case object.KindConflict:
			if err := pushConflict(store, fw, fr, sent, e.Value.ConflictID); err != nil {
				return err
			}
		case object.KindSubmodule:
			// opaque to the native store; nothing to push.
		}
	}
	return pushObject(fw, fr, sent, objstore.KindTree, id, tree.Encode())
}

func pushBlob(store *objstore.Store, fw *writer, fr *reader, sent map[ids.Hash]bool, id ids.Hash) error {
	if sent[id] {
		return nil
	}
	rc, err := store.OpenFile(id)
	if err != nil {
		return err
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return pushObject(fw, fr, sent, objstore.KindFileBlob, id, payload)
}

func pushSymlink(store *objstore.Store, fw *writer, fr *reader, sent map[ids.Hash]bool, id ids.Hash) error {
	if sent[id] {
		return nil
	}
	target, err := store.ReadSymlink(id)
	if err != nil {
		return err
	}
	return pushObject(fw, fr, sent, objstore.KindSymlinkBlob, id, []byte(target))
}

func pushConflict(store *objstore.Store, fw *writer, fr *reader, sent map[ids.Hash]bool, id ids.Hash) error {
	if sent[id] {
		return nil
	}
	c, err := store.ReadConflict(id)
	if err != nil {
		return err
	}
	return pushObject(fw, fr, sent, objstore.KindConflictBlob, id, c.Encode())
}

// pushObject probes the peer for id; if it already has it, nothing is
// sent. Otherwise the payload is sent as a single frameObject.
func pushObject(fw *writer, fr *reader, sent map[ids.Hash]bool, kind objstore.Kind, id ids.Hash, payload []byte) error {
	ref := objectRef{Kind: kind, ID: id}
	if err := fw.writeFrame(frame{Type: frameProbe, Ref: ref}); err != nil {
		return err
	}
	reply, err := fr.readFrame()
	if err != nil {
		return err
	}
	sent[id] = true
	if reply.Type == frameHave {
		return nil
	}
	if reply.Type != frameWant {
		return fmt.Errorf("remote: unexpected reply frame type %d to probe", reply.Type)
	}
	return fw.writeFrame(frame{Type: frameObject, Ref: ref, Payload: payload})
}
