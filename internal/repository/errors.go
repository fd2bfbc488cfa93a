package repository

import (
	"errors"
	"fmt"
	"net"
)

// ExplainDialError wraps a failed store dial in ErrStoreUnavailable and adds a
// hint when the failure was name resolution, which almost always means the
// host part of STORE_URL is wrong.
func ExplainDialError(err error) error {
	if err == nil {
		return nil
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: cannot resolve %q; check the host in STORE_URL: %w", ErrStoreUnavailable, dnsErr.Name, err)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
