//go:build !linux && !darwin

package sysproxy

import apperrors "proxyswitch/pkg/errors"

func newPlatformController() (Controller, error) {
	return nil, apperrors.ErrProxyUnsupported
}
