package progs

import "tern/kern"

// Echo reads console lines and writes them back. Reads park the task
// until the uart delivers bytes; ctrl-d ends the session. Ctrl-c never
// reaches this loop, the kernel eats it and kills the process.
func Echo(e *kern.Env) {
	e.Print("echo: type away, ctrl-d quits\n")
	buf := make([]byte, 64)
	line := make([]byte, 0, 256)
	for {
		n := e.Read(0, buf)
		if n <= 0 {
			e.Print("echo: console read failed\n")
			e.Exit(-1)
		}
		for _, b := range buf[:n] {
			switch b {
			case 0x04:
				e.Print("echo: bye\n")
				return
			case '\n':
				e.Print("> ")
				e.Write(1, line)
				e.Print("\n")
				line = line[:0]
			default:
				line = append(line, b)
			}
		}
	}
}
