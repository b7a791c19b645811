package progs

import "tern/kern"

const (
	pcProducers = 3
	pcPerProd   = 4
	pcSlots     = 2
)

// ProdCons moves items from three producers to one consumer through a
// ring in user memory. Two semaphores count free slots and filled slots,
// a blocking mutex guards the ring indices. The ring lives behind sbrk so
// every access walks the address space like any other user load or store.
func ProdCons(e *kern.Env) {
	base := uint64(e.Sbrk(0))
	if e.Sbrk(8 * (pcSlots + 2)) < 0 {
		e.Print("prodcons: sbrk failed\n")
		e.Exit(-1)
	}
	headVA := base
	tailVA := base + 8
	slotVA := func(i uint64) uint64 { return base + 16 + 8*(i%pcSlots) }

	free := e.SemaphoreCreate(pcSlots)
	filled := e.SemaphoreCreate(0)
	ring := e.MutexBlockingCreate()

	producer := func(e *kern.Env) {
		id := e.Arg()
		for n := uint64(0); n < pcPerProd; n++ {
			item := id*100 + n
			e.SemaphoreDown(free)
			e.MutexLock(ring)
			head := e.LoadU64(headVA)
			e.StoreU64(slotVA(head), item)
			e.StoreU64(headVA, head+1)
			e.MutexUnlock(ring)
			e.SemaphoreUp(filled)
		}
	}

	consumer := func(e *kern.Env) {
		total := uint64(0)
		for n := 0; n < pcProducers*pcPerProd; n++ {
			e.SemaphoreDown(filled)
			e.MutexLock(ring)
			tail := e.LoadU64(tailVA)
			item := e.LoadU64(slotVA(tail))
			e.StoreU64(tailVA, tail+1)
			e.MutexUnlock(ring)
			e.SemaphoreUp(free)
			total += item
		}
		e.Printf("consumed %d items, sum %d\n", pcProducers*pcPerProd, total)
	}

	tids := []int64{e.ThreadCreate(consumer, 0)}
	for id := 1; id <= pcProducers; id++ {
		tids = append(tids, e.ThreadCreate(producer, uint64(id)))
	}
	for _, tid := range tids {
		e.Waittid(int(tid))
	}
	e.Print("prodcons done\n")
}
