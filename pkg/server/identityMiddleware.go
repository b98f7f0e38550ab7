// Copyright Contributors to the Open Cluster Management project

package server

import (
	"context"
	"net/http"

	"github.com/stolostron/hnc-event-relay/pkg/config"
	"k8s.io/klog/v2"
)

const (
	ServiceAccountUser = "hnc service account"
	userHeader         = "x-forwarded-user"
	tokenHeader        = "x-forwarded-access-token"
)

type identityKey struct{}

// identity of the user making the request. An empty token means the service account.
type identity struct {
	User  string
	Token string
}

func identityFrom(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

// Reads the user and token set by the authenticating proxy.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity{User: ServiceAccountUser}
		if !config.Cfg.UseSAToken {
			id = identity{User: r.Header.Get(userHeader), Token: r.Header.Get(tokenHeader)}
			if id.Token == "" {
				klog.V(2).Infof("Rejecting %s %s without %s header.", r.Method, r.URL.Path, tokenHeader)
				http.Error(w, "missing "+tokenHeader+" header", http.StatusUnauthorized)
				return
			}
		}
		klog.V(5).Infof("%s %s from user %s", r.Method, r.URL.Path, id.User)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}
