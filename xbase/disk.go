/*
 * authgate
 *
 * Copyright 2018 The Radon Authors.
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package xbase

import (
	"syscall"

	"github.com/juju/errors"
)

// DiskInfo reports the capacity of the filesystem holding path, in bytes.
type DiskInfo struct {
	All  uint64
	Used uint64
	Free uint64
}

// DiskUsage statfs(2)s path and reports total/used/free bytes, used by the
// admin API's catalogz endpoint to surface how much room is left for the
// persisted catalog snapshot.
func DiskUsage(path string) (DiskInfo, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return DiskInfo{}, errors.Trace(err)
	}

	bsize := uint64(stat.Bsize)
	all := stat.Blocks * bsize
	free := stat.Bfree * bsize
	used := all - free

	return DiskInfo{All: all, Used: used, Free: free}, nil
}
