package secretstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// VersionAddress locates one immutable version of a secret. Once resolved it
// always refers to the same payload.
type VersionAddress struct {
	Project string
	Name    string
	Version string
}

// String returns the resource locator
// projects/<project>/secrets/<name>/versions/<version>.
func (a VersionAddress) String() string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", a.Project, a.Name, a.Version)
}

// versionResolver maps keys to addresses. Explicit versions are addressed
// without a remote call; latest keys list the secret's versions and pick the
// newest active one.
type versionResolver struct {
	client  RemoteSecretClient
	project string
	cache   *ttlCache[Key, VersionAddress] // nil when caching is disabled
	group   singleflight.Group
	obs     Observer
	log     Logger
}

func (r *versionResolver) resolve(ctx context.Context, key Key) (VersionAddress, error) {
	if r.cache != nil {
		addr, ok := r.cache.get(key)
		r.obs.CacheLookup("address", ok)
		if ok {
			return addr, nil
		}
	}

	if !key.IsLatest() {
		addr := VersionAddress{Project: r.project, Name: key.Name(), Version: key.Version()}
		if r.cache != nil {
			r.cache.put(key, addr, true)
		}
		return addr, nil
	}

	addr, err := r.latestShared(ctx, key.Name())
	if err != nil {
		return VersionAddress{}, err
	}
	if r.cache != nil {
		r.cache.put(key, addr, false)
	}
	return addr, nil
}

// latestShared collapses concurrent latest resolutions of one name. A caller
// that joined a call which failed on the leader's cancelled context tries
// again with its own context; each caller stops waiting when its own context
// ends.
func (r *versionResolver) latestShared(ctx context.Context, name string) (VersionAddress, error) {
	for {
		var led bool
		ch := r.group.DoChan(name, func() (interface{}, error) {
			led = true
			return r.latest(ctx, name)
		})

		select {
		case <-ctx.Done():
			return VersionAddress{}, RemoteServiceError{Op: "list", Project: r.project, Name: name, Version: LatestVersion, Err: ctx.Err()}
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(VersionAddress), nil
			}
			if !led && ctx.Err() == nil && isContextError(res.Err) {
				continue
			}
			return VersionAddress{}, res.Err
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *versionResolver) latest(ctx context.Context, name string) (VersionAddress, error) {
	versions, err := r.list(ctx, name)
	if err != nil {
		return VersionAddress{}, err
	}

	best, ok := latestActive(versions)
	if !ok {
		return VersionAddress{}, NotFoundError{
			Project: r.project,
			Name:    name,
			Version: LatestVersion,
			Reason:  "no active versions",
		}
	}
	r.log.Debug("Resolved latest version of %s to %s (%d versions listed)", name, best.Version, len(versions))
	return VersionAddress{Project: r.project, Name: name, Version: best.Version}, nil
}

func (r *versionResolver) list(ctx context.Context, name string) ([]VersionMetadata, error) {
	start := time.Now()
	versions, err := r.client.ListVersions(ctx, r.project, name)
	r.obs.RemoteCall("list", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return nil, NotFoundError{Project: r.project, Name: name, Version: LatestVersion, Err: err}
		}
		return nil, RemoteServiceError{Op: "list", Project: r.project, Name: name, Version: LatestVersion, Err: err}
	}
	return versions, nil
}

// latestActive picks the active version with the greatest create time. Ties
// go to the larger version identifier.
func latestActive(versions []VersionMetadata) (VersionMetadata, bool) {
	var (
		best  VersionMetadata
		found bool
	)
	for _, v := range versions {
		if !v.State.Active() {
			continue
		}
		if !found || newer(v, best) {
			best = v
			found = true
		}
	}
	return best, found
}

func newer(a, b VersionMetadata) bool {
	if !a.CreateTime.Equal(b.CreateTime) {
		return a.CreateTime.After(b.CreateTime)
	}
	return compareVersions(a.Version, b.Version) > 0
}

// compareVersions orders numeric identifiers numerically and everything else
// lexically.
func compareVersions(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// sortNewestFirst orders versions the way latestActive ranks them, ignoring
// state.
func sortNewestFirst(versions []VersionMetadata) {
	sort.SliceStable(versions, func(i, j int) bool {
		return newer(versions[i], versions[j])
	})
}
