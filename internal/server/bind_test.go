package server

import "testing"

func TestBindFindsFreePortInRange(t *testing.T) {
	ln, port, err := Bind("127.0.0.1", 19080, 19090)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer ln.Close()
	if port < 19080 || port > 19090 {
		t.Errorf("port %d outside requested range", port)
	}
}

func TestBindExhaustionFails(t *testing.T) {
	ln, port, err := Bind("127.0.0.1", 19095, 19096)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer ln.Close()

	// The same single port, already bound above, should be skipped and
	// then exhaust the range.
	_, _, err2 := Bind("127.0.0.1", port, port)
	if err2 == nil {
		t.Error("expected Bind to fail when the only port in range is taken")
	}
}
