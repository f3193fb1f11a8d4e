package hap

import (
	"github.com/boundless-engineering/hap/characteristic"
	"github.com/boundless-engineering/hap/log"

	"fmt"
	"net/http"
	"sync"
)

// event is a pending value-change notification for one characteristic.
type event struct {
	aid   uint64
	iid   uint64
	value interface{}
}

// eventQueueSize bounds the pending events per connection.
const eventQueueSize = 4

// eventQueue is a bounded ring of pending events. When full, the
// oldest entry is overwritten: a stale value is never useful once a
// fresher one exists, so dropping intermediate values under
// backpressure is correct and keeps memory bounded on a stalled client.
type eventQueue struct {
	mu    sync.Mutex
	evs   [eventQueueSize]event
	head  int
	count int
}

func newEventQueue() *eventQueue {
	return &eventQueue{}
}

func (q *eventQueue) push(ev event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == eventQueueSize {
		q.evs[q.head] = ev
		q.head = (q.head + 1) % eventQueueSize
		return
	}

	q.evs[(q.head+q.count)%eventQueueSize] = ev
	q.count++
}

// drain empties the queue and returns the events coalesced to one
// entry per characteristic, each carrying the latest queued value.
func (q *eventQueue) drain() []event {
	q.mu.Lock()
	pending := make([]event, 0, q.count)
	for i := 0; i < q.count; i++ {
		pending = append(pending, q.evs[(q.head+i)%eventQueueSize])
	}
	q.head = 0
	q.count = 0
	q.mu.Unlock()

	var out []event
	index := make(map[[2]uint64]int)
	for _, ev := range pending {
		key := [2]uint64{ev.aid, ev.iid}
		if i, ok := index[key]; ok {
			out[i].value = ev.value
			continue
		}
		index[key] = len(out)
		out = append(out, ev)
	}

	return out
}

// notify queues a value change for every subscribed connection. The
// connection which caused the change never receives its own value back.
func (srv *Server) notify(aid uint64, c *characteristic.C, value interface{}, req *http.Request) {
	for addr, conn := range clients.activeConns() {
		if !c.Subscribed(addr) {
			continue
		}
		if !conn.Encrypted() {
			continue
		}
		if req != nil && req.RemoteAddr == addr {
			// suppress the echo of a controller's own write
			continue
		}
		conn.events.push(event{aid: aid, iid: c.Id, value: value})
	}
}

// flushEvents sends pending events to every idle connection, one
// EVENT message per connection and batch.
func (srv *Server) flushEvents() {
	for addr, conn := range clients.activeConns() {
		if !conn.idle() || !conn.Encrypted() {
			continue
		}

		evs := conn.events.drain()
		if len(evs) == 0 {
			continue
		}

		arr := make([]*characteristicData, len(evs))
		for i, ev := range evs {
			arr[i] = &characteristicData{
				Aid:   ev.aid,
				Iid:   ev.iid,
				Value: ev.value,
			}
		}
		resp := struct {
			Characteristics []*characteristicData `json:"characteristics"`
		}{arr}

		body := toJSON(resp)
		msg := fmt.Sprintf("EVENT/1.0 200 OK\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s", ContentTypeHapJson, len(body), body)

		log.Debug.Println("event to", addr, body)

		if _, err := conn.Write([]byte(msg)); err != nil {
			log.Info.Println("event:", err)
			conn.Close()
		}
	}
}
