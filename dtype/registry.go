package dtype

import (
	"sync"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/cmn/nlog"
)

// Registrar is the slice of the transport contract (spec §6) the type
// registry depends on: Type_contiguous/Type_commit/Type_size/Type_free.
// Declared here (accept-interfaces) so dtype never imports a concrete
// transport package.
type Registrar interface {
	TypeCommit(elemSize int) (handle int, err error)
	TypeContiguous(count int, base int) (handle int, err error)
	TypeFree(handle int) error
}

type entry struct {
	baseHandle  int
	chunkHandle int
}

var (
	mu       sync.Mutex
	registry map[Type]entry
	reg      Registrar
)

// Init builds the native type handle and the precomputed chunk
// aggregate type for every recognized Type, once at runtime start
// (spec §4.A "Initialized once at runtime start; torn down at shutdown").
func Init(r Registrar) error {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[Type]entry, len(sizes))
	reg = r
	for t, sz := range sizes {
		base, err := reg.TypeCommit(sz)
		if err != nil {
			return cmn.WrapError("dtype.Init", cmn.ErrOther, err)
		}
		chunk, err := reg.TypeContiguous(MaxContigElements, base)
		if err != nil {
			return cmn.WrapError("dtype.Init", cmn.ErrOther, err)
		}
		registry[t] = entry{baseHandle: base, chunkHandle: chunk}
		nlog.Debugf("dtype: registered %s (base=%d chunk=%d)", t, base, chunk)
	}
	return nil
}

// Finalize tears down every registered native type handle.
func Finalize() error {
	mu.Lock()
	defer mu.Unlock()
	for t, e := range registry {
		if err := reg.TypeFree(e.chunkHandle); err != nil {
			return cmn.WrapError("dtype.Finalize", cmn.ErrOther, err)
		}
		if err := reg.TypeFree(e.baseHandle); err != nil {
			return cmn.WrapError("dtype.Finalize", cmn.ErrOther, err)
		}
		delete(registry, t)
	}
	registry = nil
	reg = nil
	return nil
}

// Handle returns the native base-type handle for t.
func Handle(t Type) (int, bool) {
	mu.Lock()
	defer mu.Unlock()
	e, ok := registry[t]
	return e.baseHandle, ok
}

// ChunkHandle returns the native handle of the precomputed
// MaxContigElements-wide chunk aggregate type for t.
func ChunkHandle(t Type) (int, bool) {
	mu.Lock()
	defer mu.Unlock()
	e, ok := registry[t]
	return e.chunkHandle, ok
}
