package main

import (
	"log"
	"os"

	"pagecache/buffer"
	"pagecache/common"
	"pagecache/disk"
	"pagecache/wal"
)

const (
	poolSize   = 32
	replacerK  = 2
	bucketSize = 4
)

func main() {
	dm, err := disk.NewDiskManager("pagecache.demo")
	common.PanicIfErr(err)
	defer dm.Close()
	defer os.Remove("pagecache.demo")

	pool := buffer.NewPoolManager(poolSize, replacerK, bucketSize, dm, wal.NoopLogManager{})

	ids := make([]uint64, 0, 50)
	for i := 0; i < 50; i++ {
		p, err := pool.NewPage()
		if err != nil {
			log.Fatalf("NewPage: %v", err)
		}
		if p == nil {
			log.Fatal("NewPage: pool exhausted")
		}

		for j := range p.Data {
			p.Data[j] = byte(i)
		}
		ids = append(ids, uint64(p.ID))

		if !pool.UnpinPage(p.ID, true) {
			log.Fatalf("UnpinPage: page %d not resident", p.ID)
		}
	}

	if err := pool.FlushAllPages(); err != nil {
		log.Fatalf("FlushAllPages: %v", err)
	}

	log.Printf("wrote %d pages; %s", len(ids), pool.Stats())
}
