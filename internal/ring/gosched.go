package ring

import "runtime"

func gosched() { runtime.Gosched() }
