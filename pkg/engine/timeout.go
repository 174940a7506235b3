package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/quarry/pkg/mapfile"
)

// EvalTimeout is the hard limit for evaluating one brush script.
const EvalTimeout = 5 * time.Second

var (
	// ErrScriptTimeout is returned when a brush script runs past
	// EvalTimeout. The map it was building is discarded.
	ErrScriptTimeout = errors.New("brush script timed out")

	// ErrScriptSuperseded is returned to a caller whose script finished
	// after a newer Evaluate call started.
	ErrScriptSuperseded = errors.New("brush script superseded by a newer evaluation")
)

// evalResult carries one finished script evaluation back to Evaluate.
type evalResult struct {
	m      *mapfile.Map
	errors []EvalError
	err    error
}

// waitWithTimeout returns the map from ch unless EvalTimeout passes first
// or a newer evaluation has bumped currentGen past gen. A timed out script
// keeps running in its goroutine; when it finishes, its generation no
// longer matches and its map is dropped.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*mapfile.Map, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		stale := gen != *currentGen
		mu.Unlock()
		if stale {
			return nil, nil, ErrScriptSuperseded
		}
		return res.m, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrScriptTimeout, EvalTimeout)
	}
}
