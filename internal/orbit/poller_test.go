package orbit

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestPollerPublishesFilteredSet(t *testing.T) {
	network := &fakeNetwork{}
	network.setPeers(map[string]PeerInfo{
		"peer-b": {Addr: "/ip4/10.0.0.2/tcp/4001/p2p/peer-b"},
		"peer-a": {Addr: "/ip4/10.0.0.1/tcp/4001/p2p/peer-a"},
		"peer-c": {}, // no resolvable address, dropped
	}, nil)
	o := newTestOrbit(t, newFakeLogProvider(), network)

	sub := o.Events().Subscribe()
	defer sub.Close()

	if err := o.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer o.Disconnect()

	ev := waitEvent(t, sub, EventPeers)
	want := []string{
		"/ip4/10.0.0.1/tcp/4001/p2p/peer-a",
		"/ip4/10.0.0.2/tcp/4001/p2p/peer-b",
	}
	if !reflect.DeepEqual(ev.Peers, want) {
		t.Errorf("peers event = %v, want %v", ev.Peers, want)
	}
	if !reflect.DeepEqual(o.Peers(), want) {
		t.Errorf("Peers() = %v, want %v", o.Peers(), want)
	}
}

func TestPollerSurvivesQueryFailures(t *testing.T) {
	network := &fakeNetwork{}
	network.setPeers(nil, errors.New("swarm query failed"))
	o := newTestOrbit(t, newFakeLogProvider(), network)

	sub := o.Events().Subscribe()
	defer sub.Close()

	if err := o.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer o.Disconnect()

	// Let a few failing cycles pass, then recover.
	time.Sleep(50 * time.Millisecond)
	network.setPeers(map[string]PeerInfo{"p": {Addr: "/ip4/10.0.0.9/tcp/4001/p2p/p"}}, nil)

	ev := waitEvent(t, sub, EventPeers)
	if len(ev.Peers) != 1 {
		t.Errorf("poller must keep cycling after failures, got %v", ev.Peers)
	}
}

func TestPollerReplacesSetWholesale(t *testing.T) {
	network := &fakeNetwork{}
	network.setPeers(map[string]PeerInfo{"p1": {Addr: "/addr/one"}}, nil)
	o := newTestOrbit(t, newFakeLogProvider(), network)

	sub := o.Events().Subscribe()
	defer sub.Close()

	if err := o.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer o.Disconnect()

	waitEvent(t, sub, EventPeers)
	network.setPeers(map[string]PeerInfo{"p2": {Addr: "/addr/two"}}, nil)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.C:
			if ev.Type != EventPeers {
				continue
			}
			if len(ev.Peers) == 1 && ev.Peers[0] == "/addr/two" {
				return // old entry gone, set replaced not merged
			}
		case <-deadline:
			t.Fatal("timed out waiting for replaced peer set")
		}
	}
}
