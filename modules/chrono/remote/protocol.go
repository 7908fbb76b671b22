// Package remote implements the collaborator surface of spec section 6:
// syncing a local repository with a remote one over an authenticated
// transport. It is deliberately independent of the git-backed backend
// (modules/chrono/gitbackend) — here the wire format carries native
// chrono objects directly, so two chrono repositories can exchange
// commits, trees, and blobs without a git round trip.
//
// The negotiation is a minimal want/have exchange rather than the
// teacher's LFS-style batch/shared/range protocol in pkg/transport: a
// client probes each object it would need to send, the peer answers
// have-or-want, and only wanted objects cross the wire. This keeps the
// transport's job to moving bytes over an authenticated ssh.Session
// (grounded on pkg/transport/ssh's client/Command split) while this file
// owns framing and push.go/fetch.go own negotiation.
package remote

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chronoscope/chrono/modules/chrono/ids"
	"github.com/chronoscope/chrono/modules/chrono/objstore"
)

type frameType byte

const (
	frameProbe frameType = iota + 1
	frameHave
	frameWant
	frameObject
	frameRef
	frameDone
)

// kindCode maps objstore.Kind to a single wire byte so frames stay
// fixed-width outside of the payload itself.
func kindCode(k objstore.Kind) byte {
	switch k {
	case objstore.KindFileBlob:
		return 1
	case objstore.KindSymlinkBlob:
		return 2
	case objstore.KindTree:
		return 3
	case objstore.KindCommit:
		return 4
	case objstore.KindConflictBlob:
		return 5
	default:
		return 0
	}
}

func codeKind(b byte) (objstore.Kind, error) {
	switch b {
	case 1:
		return objstore.KindFileBlob, nil
	case 2:
		return objstore.KindSymlinkBlob, nil
	case 3:
		return objstore.KindTree, nil
	case 4:
		return objstore.KindCommit, nil
	case 5:
		return objstore.KindConflictBlob, nil
	default:
		return "", fmt.Errorf("remote: unknown object kind code %d", b)
	}
}

// objectRef names one wanted/offered item: its kind and content id.
type objectRef struct {
	Kind objstore.Kind
	ID   ids.Hash
}

// frame is one unit of the wire protocol: a type tag, an optional
// object reference, a ref name (frameRef only), and a payload
// (frameObject only).
type frame struct {
	Type    frameType
	Ref     objectRef
	RefName string
	Payload []byte
}

// writer serializes frames onto w, a session's stdin or stdout pipe.
type writer struct {
	w *bufio.Writer
}

func newWriter(w io.Writer) *writer { return &writer{w: bufio.NewWriter(w)} }

func (fw *writer) writeFrame(f frame) error {
	if err := fw.w.WriteByte(byte(f.Type)); err != nil {
		return err
	}
	switch f.Type {
	case frameProbe, frameHave, frameWant:
		if err := fw.w.WriteByte(kindCode(f.Ref.Kind)); err != nil {
			return err
		}
		if _, err := fw.w.Write(f.Ref.ID[:]); err != nil {
			return err
		}
	case frameObject:
		if err := fw.w.WriteByte(kindCode(f.Ref.Kind)); err != nil {
			return err
		}
		if _, err := fw.w.Write(f.Ref.ID[:]); err != nil {
			return err
		}
		if err := binary.Write(fw.w, binary.BigEndian, uint32(len(f.Payload))); err != nil {
			return err
		}
		if _, err := fw.w.Write(f.Payload); err != nil {
			return err
		}
	case frameRef:
		if err := binary.Write(fw.w, binary.BigEndian, uint32(len(f.RefName))); err != nil {
			return err
		}
		if _, err := fw.w.Write([]byte(f.RefName)); err != nil {
			return err
		}
		if _, err := fw.w.Write(f.Ref.ID[:]); err != nil {
			return err
		}
	case frameDone:
		// no body
	default:
		return fmt.Errorf("remote: write unknown frame type %d", f.Type)
	}
	return fw.w.Flush()
}

// reader deserializes frames from r, a session's stdin or stdout pipe.
type reader struct {
	r *bufio.Reader
}

func newReader(r io.Reader) *reader { return &reader{r: bufio.NewReader(r)} }

func (fr *reader) readFrame() (frame, error) {
	tb, err := fr.r.ReadByte()
	if err != nil {
		return frame{}, err
	}
	f := frame{Type: frameType(tb)}
	switch f.Type {
	case frameProbe, frameHave, frameWant:
		kb, err := fr.r.ReadByte()
		if err != nil {
			return frame{}, err
		}
		kind, err := codeKind(kb)
		if err != nil {
			return frame{}, err
		}
		var id ids.Hash
		if _, err := io.ReadFull(fr.r, id[:]); err != nil {
			return frame{}, err
		}
		f.Ref = objectRef{Kind: kind, ID: id}
	case frameObject:
		kb, err := fr.r.ReadByte()
		if err != nil {
			return frame{}, err
		}
		kind, err := codeKind(kb)
		if err != nil {
			return frame{}, err
		}
		var id ids.Hash
		if _, err := io.ReadFull(fr.r, id[:]); err != nil {
			return frame{}, err
		}
		var size uint32
		if err := binary.Read(fr.r, binary.BigEndian, &size); err != nil {
			return frame{}, err
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(fr.r, payload); err != nil {
			return frame{}, err
		}
		f.Ref = objectRef{Kind: kind, ID: id}
		f.Payload = payload
	case frameRef:
		var nameLen uint32
		if err := binary.Read(fr.r, binary.BigEndian, &nameLen); err != nil {
			return frame{}, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(fr.r, name); err != nil {
			return frame{}, err
		}
		var id ids.Hash
		if _, err := io.ReadFull(fr.r, id[:]); err != nil {
			return frame{}, err
		}
		f.RefName = string(name)
		f.Ref = objectRef{ID: id}
	case frameDone:
		// no body
	default:
		return frame{}, fmt.Errorf("remote: read unknown frame type %d", f.Type)
	}
	return f, nil
}
