package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestReporterBroadcast(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		NewClient(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	r := &Reporter{Job: "test.m2", Stages: []string{"geometry", "serialize"}}
	if !r.Stage("geometry") || !r.Stage("serialize") {
		t.Fatal("reporter canceled")
	}

	conn.SetReadDeadline(deadline)
	var got []status
	for len(got) < 2 {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		var s status
		if err := json.Unmarshal(data, &s); err != nil {
			t.Fatal(err)
		}
		if strings.HasPrefix(s.Message, "test.m2: ") {
			got = append(got, s)
		}
	}
	if got[0].Type != PROGRESS || got[0].Message != "test.m2: geometry" || got[0].Progress != 0 {
		t.Errorf("first %+v", got[0])
	}
	if got[1].Message != "test.m2: serialize" || got[1].Progress != 0.5 {
		t.Errorf("second %+v", got[1])
	}
}

func TestReporterWithoutStages(t *testing.T) {
	r := &Reporter{Job: "empty"}
	r.Stage("a")
	r.Stage("b")
	if r.done != 2 {
		t.Errorf("done %d", r.done)
	}
}
