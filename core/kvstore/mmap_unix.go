//go:build unix

package kvstore

import (
	"fmt"
	"os"
	"syscall"
)

// mmapFile maps path read-only into memory for the lifetime of the returned
// snapshot. There is no third-party mmap library anywhere in the corpus
// (searched for bbolt/boltdb/btree/mmap across every example repo); this is
// the one component in the store built directly on syscall, documented in
// DESIGN.md as a stdlib fallback.
func mmapFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("kvstore: %s is empty", path)
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}

func munmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return syscall.Munmap(data)
}
