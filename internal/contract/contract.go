//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/scythe504/partybox-server/internal"
)

// Transport delivers envelopes to connections and tracks which connections
// follow which room. Implementations must not block the caller on a slow
// connection.
type Transport interface {
	Send(transportID string, msg internal.Message[any])
	Broadcast(code string, msg internal.Message[any])
	Subscribe(code, transportID string)
	Unsubscribe(code, transportID string)
	CloseRoom(code string)
}

// MatchRecorder accepts finished matches. Record must not block and
// reports whether the result was accepted.
type MatchRecorder interface {
	Record(result internal.MatchResult) bool
}

type MatchStore interface {
	SaveMatch(ctx context.Context, result internal.MatchResult) error
}

type Worker interface {
	Run(ctx context.Context) error
}

// WorkerName is the type name of w, used in supervision logs.
func WorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
