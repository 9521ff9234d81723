package secretstore

import (
	"context"
	"errors"
	"time"

	"github.com/systmms/gcpsecrets/internal/secure"
)

// cachedPayload holds a decoded payload either as a plain string or sealed
// in a secure buffer.
type cachedPayload struct {
	plain  string
	sealed *secure.SecureBuffer
}

func (p cachedPayload) reveal() (string, error) {
	if p.sealed == nil {
		return p.plain, nil
	}
	return p.sealed.Reveal()
}

func (p cachedPayload) destroy() {
	if p.sealed != nil {
		p.sealed.Destroy()
	}
}

// payloadCache fetches and decodes payloads by address and translates
// remote failures into the store's error taxonomy.
type payloadCache struct {
	client RemoteSecretClient
	cache  *ttlCache[VersionAddress, cachedPayload] // nil when caching is disabled
	sealed bool
	obs    Observer
	log    Logger
}

// get returns the payload at addr. Entries stored with permanent set never
// expire.
func (p *payloadCache) get(ctx context.Context, addr VersionAddress, permanent bool) (string, error) {
	if p.cache != nil {
		entry, ok := p.cache.get(addr)
		if ok {
			value, err := entry.reveal()
			if err == nil {
				p.obs.CacheLookup("payload", true)
				return value, nil
			}
			p.log.Debug("Discarding unreadable cached payload for %s: %v", addr, err)
		}
		p.obs.CacheLookup("payload", false)
	}

	start := time.Now()
	data, err := p.client.FetchPayload(ctx, addr.Project, addr.Name, addr.Version)
	p.obs.RemoteCall("access", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return "", NotFoundError{Project: addr.Project, Name: addr.Name, Version: addr.Version, Err: err}
		}
		return "", RemoteServiceError{Op: "access", Project: addr.Project, Name: addr.Name, Version: addr.Version, Err: err}
	}

	value := string(data)
	if p.cache != nil {
		entry, err := p.seal(value)
		if err != nil {
			p.log.Debug("Not caching payload for %s: %v", addr, err)
			return value, nil
		}
		p.cache.put(addr, entry, permanent)
	}
	return value, nil
}

func (p *payloadCache) seal(value string) (cachedPayload, error) {
	if !p.sealed {
		return cachedPayload{plain: value}, nil
	}
	buf, err := secure.SealString(value)
	if err != nil {
		return cachedPayload{}, err
	}
	return cachedPayload{sealed: buf}, nil
}
