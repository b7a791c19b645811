package abi

import "encoding/binary"

// TimeVal is the get_time result structure.
type TimeVal struct {
	Sec  uint64
	USec uint64
}

// TimeValBytes is the encoded size of a TimeVal.
const TimeValBytes = 16

// EncodeTimeVal encodes a TimeVal.
//
// Layout (little-endian):
//   - u64: seconds
//   - u64: microseconds
func EncodeTimeVal(tv TimeVal) []byte {
	buf := make([]byte, TimeValBytes)
	binary.LittleEndian.PutUint64(buf[0:8], tv.Sec)
	binary.LittleEndian.PutUint64(buf[8:16], tv.USec)
	return buf
}

// DecodeTimeVal decodes a TimeVal.
func DecodeTimeVal(buf []byte) (TimeVal, bool) {
	if len(buf) < TimeValBytes {
		return TimeVal{}, false
	}
	return TimeVal{
		Sec:  binary.LittleEndian.Uint64(buf[0:8]),
		USec: binary.LittleEndian.Uint64(buf[8:16]),
	}, true
}

// MSFromTimeVal flattens a TimeVal to milliseconds.
func MSFromTimeVal(tv TimeVal) uint64 {
	return tv.Sec*1000 + tv.USec/1000
}

// TimeValFromMS expands milliseconds into a TimeVal.
func TimeValFromMS(ms uint64) TimeVal {
	return TimeVal{Sec: ms / 1000, USec: ms % 1000 * 1000}
}

// TaskInfo is the task_info result structure.
type TaskInfo struct {
	Status   uint32
	TimeMS   uint64
	Syscalls [MaxSyscallNum]uint32
}

// TaskInfoBytes is the encoded size of a TaskInfo.
const TaskInfoBytes = 4 + 8 + MaxSyscallNum*4

// EncodeTaskInfo encodes a TaskInfo.
//
// Layout (little-endian):
//   - u32: task status
//   - u64: scheduled time in milliseconds
//   - 500 x u32: per-call invocation counters indexed by call number
func EncodeTaskInfo(ti TaskInfo) []byte {
	buf := make([]byte, TaskInfoBytes)
	binary.LittleEndian.PutUint32(buf[0:4], ti.Status)
	binary.LittleEndian.PutUint64(buf[4:12], ti.TimeMS)
	for i, n := range ti.Syscalls {
		binary.LittleEndian.PutUint32(buf[12+i*4:16+i*4], n)
	}
	return buf
}

// DecodeTaskInfo decodes a TaskInfo.
func DecodeTaskInfo(buf []byte) (TaskInfo, bool) {
	if len(buf) < TaskInfoBytes {
		return TaskInfo{}, false
	}
	var ti TaskInfo
	ti.Status = binary.LittleEndian.Uint32(buf[0:4])
	ti.TimeMS = binary.LittleEndian.Uint64(buf[4:12])
	for i := range ti.Syscalls {
		ti.Syscalls[i] = binary.LittleEndian.Uint32(buf[12+i*4 : 16+i*4])
	}
	return ti, true
}
