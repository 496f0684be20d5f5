package cache

import (
	"context"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/jlevy/kash-media/pkg/logger"
)

// PruneResult summarizes what a Prune pass removed.
type PruneResult struct {
	EntriesRemoved int
	BytesFreed     int64
}

// Prune removes expired entries, then evicts least-recently-used entries
// until the cache fits its size budget. A zero budget skips eviction.
func (c *Cache) Prune(ctx context.Context) (*PruneResult, error) {
	result := &PruneResult{}
	var errs *multierror.Error

	var expired []Entry
	err := c.db.SelectContext(ctx, &expired,
		"SELECT * FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= ?",
		time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list expired cache entries")
	}
	for _, entry := range expired {
		if err := c.remove(ctx, entry); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		result.EntriesRemoved++
		result.BytesFreed += entry.Size
	}

	if c.maxBytes > 0 {
		total, err := c.totalSize(ctx)
		if err != nil {
			return result, err
		}
		if total > c.maxBytes {
			var lru []Entry
			err := c.db.SelectContext(ctx, &lru,
				"SELECT * FROM cache_entries ORDER BY last_access ASC")
			if err != nil {
				return result, errors.Wrap(err, "failed to list cache entries for eviction")
			}
			for _, entry := range lru {
				if total <= c.maxBytes {
					break
				}
				if err := c.remove(ctx, entry); err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				total -= entry.Size
				result.EntriesRemoved++
				result.BytesFreed += entry.Size
			}
		}
	}

	logger.G(ctx).WithField("removed", result.EntriesRemoved).
		WithField("bytesFreed", result.BytesFreed).
		Debug("cache prune complete")
	return result, errs.ErrorOrNil()
}

// remove deletes an entry's file (unless another entry still references
// it) and its index row.
func (c *Cache) remove(ctx context.Context, entry Entry) error {
	var refs int
	err := c.db.GetContext(ctx, &refs,
		"SELECT COUNT(*) FROM cache_entries WHERE path = ? AND key != ?",
		entry.Path, entry.Key)
	if err != nil {
		return errors.Wrapf(err, "failed to count references to %s", entry.Path)
	}
	if refs == 0 {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to remove cached file %s", entry.Path)
		}
	}
	_, err = c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", entry.Key)
	return errors.Wrapf(err, "failed to delete cache entry %s", entry.Key)
}

func (c *Cache) totalSize(ctx context.Context) (int64, error) {
	var total int64
	err := c.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(size), 0) FROM cache_entries")
	return total, errors.Wrap(err, "failed to sum cache size")
}

// Info describes the cache's contents and the disk it lives on.
type Info struct {
	Root      string
	Entries   int
	TotalSize int64
	DiskFree  uint64
	DiskTotal uint64
}

// Stat reports entry counts, indexed bytes, and free space on the cache's
// filesystem.
func (c *Cache) Stat(ctx context.Context) (*Info, error) {
	info := &Info{Root: c.root}

	if err := c.db.GetContext(ctx, &info.Entries, "SELECT COUNT(*) FROM cache_entries"); err != nil {
		return nil, errors.Wrap(err, "failed to count cache entries")
	}
	total, err := c.totalSize(ctx)
	if err != nil {
		return nil, err
	}
	info.TotalSize = total

	if usage, err := disk.Usage(c.root); err == nil {
		info.DiskFree = usage.Free
		info.DiskTotal = usage.Total
	} else {
		logger.G(ctx).WithError(err).Debug("failed to read disk usage for cache root")
	}
	return info, nil
}
