package dtype

import "testing"

func TestSizeAndString(t *testing.T) {
	cases := []struct {
		t    Type
		size int
		name string
	}{
		{Byte, 1, "byte"},
		{Int32, 4, "i32"},
		{UInt64, 8, "u64"},
		{Float64, 8, "f64"},
		{LongDouble, 16, "longdouble"},
	}
	for _, c := range cases {
		if got := Size(c.t); got != c.size {
			t.Errorf("Size(%v) = %d, want %d", c.t, got, c.size)
		}
		if got := c.t.String(); got != c.name {
			t.Errorf("%v.String() = %q, want %q", c.t, got, c.name)
		}
	}
}

func TestIntegral(t *testing.T) {
	for _, tt := range []Type{Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64, LongLong, Byte} {
		if !Integral(tt) {
			t.Errorf("Integral(%v) = false, want true", tt)
		}
	}
	for _, tt := range []Type{Float32, Float64, LongDouble} {
		if Integral(tt) {
			t.Errorf("Integral(%v) = true, want false", tt)
		}
	}
}

func TestPlanNoChunking(t *testing.T) {
	p := Plan(100)
	if p.NumChunks != 0 || p.Remainder != 100 {
		t.Fatalf("Plan(100) = %+v, want 0 chunks, remainder 100", p)
	}
}

func TestPlanExactChunk(t *testing.T) {
	p := Plan(MaxContigElements)
	if p.NumChunks != 1 || p.Remainder != 0 {
		t.Fatalf("Plan(CHUNK) = %+v, want 1 chunk, remainder 0", p)
	}
}

func TestPlanTwoChunkPath(t *testing.T) {
	n := int64(MaxContigElements)*2 + 5
	p := Plan(n)
	if p.NumChunks != 2 || p.Remainder != 5 {
		t.Fatalf("Plan(2*CHUNK+5) = %+v, want 2 chunks, remainder 5", p)
	}
}
