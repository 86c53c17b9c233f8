package remote

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-ripple/ripple/pkg/core"
	"github.com/go-ripple/ripple/pkg/reactive"
	"github.com/go-ripple/ripple/pkg/wire"
)

type counterState struct {
	reactive.State
	Count reactive.Value[int]
}

func counterApp() *core.Component {
	return core.Define("counter", func(ctx *core.BuildContext) {
		bag := core.UseState(ctx, func() *counterState { return &counterState{} })
		ctx.Place(core.Native("button"), core.P("onClick", func() {
			bag.Count.Update(func(v int) int { return v + 1 })
		}))
		ctx.Text(fmt.Sprintf("count: %d", bag.Count.Get()))
	})
}

func dialHost(t *testing.T, h *Host) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) serverMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return msg
}

func readPatches(t *testing.T, ws *websocket.Conn) serverMessage {
	t.Helper()
	for {
		msg := readMessage(t, ws)
		switch msg.Type {
		case "hello":
			continue
		case "patches":
			return msg
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}
}

// patchNode mirrors the wire shape a JSON client sees.
type patchNode struct {
	ID       wire.NodeID                `json:"id"`
	Props    map[string]json.RawMessage `json:"props"`
	Children []patchNode                `json:"children"`
}

func TestClientGetsInitialTreeAndUpdates(t *testing.T) {
	host := NewHost(counterApp(), nil)
	defer host.Shutdown()
	ws := dialHost(t, host)

	initial := readPatches(t, ws)
	if len(initial.Patches) != 1 || initial.Patches[0].Kind != wire.PatchAdd {
		t.Fatalf("initial = %+v, want one Add", initial.Patches)
	}

	// Re-decode through JSON the way a real client would, to pull the
	// callback ref out of the button's props.
	raw, _ := json.Marshal(initial.Patches[0].Tree)
	var tree patchNode
	if err := json.Unmarshal(raw, &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("tree children = %d, want button and text", len(tree.Children))
	}
	var ref struct {
		Callback clientEvent `json:"$callback"`
	}
	if err := json.Unmarshal(tree.Children[0].Props["onClick"], &ref); err != nil {
		t.Fatalf("decode callback ref: %v", err)
	}
	if ref.Callback.Node != tree.Children[0].ID || ref.Callback.Prop != "onClick" {
		t.Fatalf("callback ref = %+v", ref.Callback)
	}

	// Echo the ref back as a click event.
	event, _ := json.Marshal(clientEvent{Node: ref.Callback.Node, Prop: ref.Callback.Prop})
	if err := ws.WriteMessage(websocket.TextMessage, event); err != nil {
		t.Fatalf("write event: %v", err)
	}

	update := readPatches(t, ws)
	if len(update.Patches) != 1 || update.Patches[0].Kind != wire.PatchUpdate {
		t.Fatalf("update = %+v, want one Update", update.Patches)
	}
	if got := update.Patches[0].Props["text"]; got != "count: 1" {
		t.Errorf("text = %v, want count: 1", got)
	}
}

func TestMalformedAndUnknownEventsReportErrors(t *testing.T) {
	host := NewHost(counterApp(), nil)
	defer host.Shutdown()
	ws := dialHost(t, host)
	readPatches(t, ws)

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, ws); msg.Type != "error" {
		t.Fatalf("message = %+v, want an error for malformed input", msg)
	}

	event, _ := json.Marshal(clientEvent{Node: "missing", Prop: "onClick"})
	if err := ws.WriteMessage(websocket.TextMessage, event); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, ws); msg.Type != "error" {
		t.Fatalf("message = %+v, want an error for an unknown node", msg)
	}
}

func TestFailedInitialRenderReachesClient(t *testing.T) {
	boom := core.Define("boom", func(ctx *core.BuildContext) {
		panic("bad start")
	})
	host := NewHost(boom, nil)
	defer host.Shutdown()
	ws := dialHost(t, host)

	if msg := readMessage(t, ws); msg.Type != "hello" {
		t.Fatalf("first message = %+v, want hello", msg)
	}
	msg := readMessage(t, ws)
	if msg.Type != "error" || msg.Error == "" {
		t.Fatalf("message = %+v, want the render failure", msg)
	}
}

func TestDisconnectClosesSession(t *testing.T) {
	host := NewHost(counterApp(), nil)
	defer host.Shutdown()
	ws := dialHost(t, host)
	readPatches(t, ws)

	if got := host.ConnCount(); got != 1 {
		t.Fatalf("ConnCount = %d, want 1", got)
	}
	ws.Close()

	deadline := time.Now().Add(5 * time.Second)
	for host.ConnCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not reaped after client disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEachClientGetsItsOwnSession(t *testing.T) {
	host := NewHost(counterApp(), nil)
	defer host.Shutdown()

	a := dialHost(t, host)
	b := dialHost(t, host)
	readPatches(t, a)
	initialB := readPatches(t, b)

	// Click on connection A only.
	raw, _ := json.Marshal(initialB.Patches[0].Tree)
	var tree patchNode
	json.Unmarshal(raw, &tree)
	event, _ := json.Marshal(clientEvent{Node: tree.Children[0].ID, Prop: "onClick"})
	if err := a.WriteMessage(websocket.TextMessage, event); err != nil {
		t.Fatalf("write: %v", err)
	}
	update := readPatches(t, a)
	if got := update.Patches[0].Props["text"]; got != "count: 1" {
		t.Errorf("A text = %v, want count: 1", got)
	}

	// B must not receive A's update.
	b.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := b.ReadMessage(); err == nil {
		t.Errorf("B received %s, want nothing", data)
	}
}
