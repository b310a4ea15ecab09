package xtransport

import "testing"

func TestSendRecvMatchesTagAndSender(t *testing.T) {
	w := NewWorld(3, nil)
	w.Send(2, 7, 0, []byte("hello"))
	if !w.Iprobe(2, 7, 0) {
		t.Fatal("Iprobe should see the queued message")
	}
	if !w.Iprobe(2, 7, -1) {
		t.Fatal("Iprobe with any-source should also see it")
	}
	from, data := w.Recv(2, 7, 0)
	if from != 0 || string(data) != "hello" {
		t.Fatalf("Recv = %d, %q; want 0, hello", from, data)
	}
	if w.Iprobe(2, 7, 0) {
		t.Fatal("message should be consumed after Recv")
	}
}

func TestRecvAnySource(t *testing.T) {
	w := NewWorld(3, nil)
	w.Send(1, 5, 2, []byte("from-2"))
	from, data := w.Recv(1, 5, -1)
	if from != 2 || string(data) != "from-2" {
		t.Fatalf("Recv(any) = %d, %q", from, data)
	}
}
