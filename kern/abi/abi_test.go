package abi

import "testing"

func TestTimeValCodec(t *testing.T) {
	tv := TimeValFromMS(1234)
	if tv.Sec != 1 || tv.USec != 234_000 {
		t.Fatalf("timeval from 1234ms = {%d %d}, want {1 234000}", tv.Sec, tv.USec)
	}
	buf := EncodeTimeVal(tv)
	if len(buf) != TimeValBytes {
		t.Fatalf("encoded size = %d, want %d", len(buf), TimeValBytes)
	}
	got, ok := DecodeTimeVal(buf)
	if !ok || got != tv {
		t.Fatalf("decode = %+v/%v, want %+v", got, ok, tv)
	}
	if ms := MSFromTimeVal(got); ms != 1234 {
		t.Fatalf("ms round trip = %d, want 1234", ms)
	}
}

func TestDecodeTimeValShortBuffer(t *testing.T) {
	if _, ok := DecodeTimeVal(make([]byte, TimeValBytes-1)); ok {
		t.Fatal("short buffer should not decode")
	}
}

func TestTaskInfoCodec(t *testing.T) {
	var ti TaskInfo
	ti.Status = 2
	ti.TimeMS = 987
	ti.Syscalls[SysWrite] = 3
	ti.Syscalls[SysYield] = 11

	buf := EncodeTaskInfo(ti)
	if len(buf) != TaskInfoBytes {
		t.Fatalf("encoded size = %d, want %d", len(buf), TaskInfoBytes)
	}
	got, ok := DecodeTaskInfo(buf)
	if !ok {
		t.Fatal("decode failed")
	}
	if got.Status != 2 || got.TimeMS != 987 {
		t.Fatalf("decoded header = %d/%d, want 2/987", got.Status, got.TimeMS)
	}
	if got.Syscalls[SysWrite] != 3 || got.Syscalls[SysYield] != 11 {
		t.Fatal("decoded counters do not match")
	}
	if got.Syscalls[SysExit] != 0 {
		t.Fatal("untouched counter should be zero")
	}
}

func TestName(t *testing.T) {
	tcs := []struct {
		id   uint64
		want string
	}{
		{SysExit, "exit"},
		{SysCondvarWaitTO, "condvar_wait_timeout"},
		{9999, "unknown"},
	}
	for _, tc := range tcs {
		if got := Name(tc.id); got != tc.want {
			t.Fatalf("Name(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
