// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stolostron/hnc-event-relay/pkg/metrics"
	"github.com/stolostron/hnc-event-relay/pkg/model"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
)

//go:generate mockgen -destination=mocks/mock_kube.go -package=mocks github.com/stolostron/hnc-event-relay/pkg/kube Interface

// Interface is the kubernetes API used by the relay.
type Interface interface {
	Get(ctx context.Context, ref model.ResourceRef) (*unstructured.Unstructured, error)
	List(ctx context.Context, ref model.ResourceRef) ([]unstructured.Unstructured, error)
	Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	Apply(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	Delete(ctx context.Context, ref model.ResourceRef) error
	Watch(ctx context.Context, ref model.ResourceRef, onEvent func(model.WatchEvent)) error
}

// Options for the connections to the API server.
type Options struct {
	KeepAlive   time.Duration // TCP keepalive period.
	IdleTimeout time.Duration // Abort watches after this long without data. Zero disables.
}

// Factory builds clients sharing one connection pool. Clients for user credentials
// use an anonymous copy of the base config and add their own bearer token.
type Factory struct {
	host          string
	opts          Options
	saConfig      *rest.Config
	saTransport   http.RoundTripper
	userConfig    *rest.Config
	userTransport http.RoundTripper
}

func NewFactory(base *rest.Config, opts Options) (*Factory, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: opts.KeepAlive}

	saConfig := rest.CopyConfig(base)
	saConfig.Dial = dialer.DialContext
	saTransport, err := rest.TransportFor(saConfig)
	if err != nil {
		return nil, fmt.Errorf("building service account transport: %w", err)
	}

	userConfig := rest.AnonymousClientConfig(base)
	userConfig.Dial = dialer.DialContext
	userTransport, err := rest.TransportFor(userConfig)
	if err != nil {
		return nil, fmt.Errorf("building user transport: %w", err)
	}

	hostURL, _, err := rest.DefaultServerURL(base.Host, "", schema.GroupVersion{}, rest.IsConfigTransportTLS(*base))
	if err != nil {
		return nil, fmt.Errorf("parsing API server host %q: %w", base.Host, err)
	}

	return &Factory{
		host:          strings.TrimSuffix(hostURL.String(), "/"),
		opts:          opts,
		saConfig:      saConfig,
		saTransport:   saTransport,
		userConfig:    userConfig,
		userTransport: userTransport,
	}, nil
}

// ServiceAccount returns a client using the relay's own identity.
func (f *Factory) ServiceAccount() (*Client, error) {
	return f.newClient(f.saConfig, f.saTransport)
}

// ForCredential returns a client authenticated with the credential token.
func (f *Factory) ForCredential(cred *Credential) (*Client, error) {
	return f.newClient(f.userConfig, &bearerRoundTripper{cred: cred, rt: f.userTransport})
}

func (f *Factory) newClient(config *rest.Config, rt http.RoundTripper) (*Client, error) {
	httpClient := &http.Client{Transport: rt}
	dyn, err := dynamic.NewForConfigAndClient(config, httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{
		host:        f.host,
		httpClient:  httpClient,
		dynamic:     dyn,
		idleTimeout: f.opts.IdleTimeout,
	}, nil
}

// Client talks to the API server with a single identity.
type Client struct {
	host        string
	httpClient  *http.Client
	dynamic     dynamic.Interface
	idleTimeout time.Duration
}

func (c *Client) resource(ref model.ResourceRef) (dynamic.ResourceInterface, error) {
	gvr, err := GroupVersionResource(ref)
	if err != nil {
		return nil, err
	}
	if ref.Namespace != "" {
		return c.dynamic.Resource(gvr).Namespace(ref.Namespace), nil
	}
	return c.dynamic.Resource(gvr), nil
}

func requireName(ref model.ResourceRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if ref.Name == "" {
		return fmt.Errorf("%w: the object passed must contain name field", model.ErrInvalidRef)
	}
	return nil
}

// Get returns a single object.
func (c *Client) Get(ctx context.Context, ref model.ResourceRef) (*unstructured.Unstructured, error) {
	if err := requireName(ref); err != nil {
		return nil, err
	}
	defer metrics.ObserveKubeRequest("get", ref.Kind, "get "+ref.String())()

	r, err := c.resource(ref)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, ref.Name, metav1.GetOptions{})
}

// List returns the items of the collection selected by the ref labels (and name, if set).
func (c *Client) List(ctx context.Context, ref model.ResourceRef) ([]unstructured.Unstructured, error) {
	defer metrics.ObserveKubeRequest("list", ref.Kind, "list "+ref.String())()

	r, err := c.resource(ref)
	if err != nil {
		return nil, err
	}
	opts := metav1.ListOptions{LabelSelector: LabelSelector(ref)}
	if ref.Name != "" {
		opts.FieldSelector = "metadata.name=" + ref.Name
	}
	list, err := r.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Create creates the object in the namespace and with the kind it declares.
func (c *Client) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	ref := model.RefForObject(obj)
	if err := requireName(ref); err != nil {
		return nil, err
	}
	defer metrics.ObserveKubeRequest("create", ref.Kind, "create "+ref.String())()

	r, err := c.resource(ref)
	if err != nil {
		return nil, err
	}
	return r.Create(ctx, obj, metav1.CreateOptions{})
}

// Apply replaces the object, or creates it when it doesn't exist.
func (c *Client) Apply(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	ref := model.RefForObject(obj)
	if err := requireName(ref); err != nil {
		return nil, err
	}
	defer metrics.ObserveKubeRequest("apply", ref.Kind, "apply "+ref.String())()

	r, err := c.resource(ref)
	if err != nil {
		return nil, err
	}
	updated, err := r.Update(ctx, obj, metav1.UpdateOptions{})
	if apierrors.IsNotFound(err) {
		klog.V(3).Infof("%s not found, creating it.", ref)
		return r.Create(ctx, obj, metav1.CreateOptions{})
	}
	return updated, err
}

// Delete deletes a single object.
func (c *Client) Delete(ctx context.Context, ref model.ResourceRef) error {
	if err := requireName(ref); err != nil {
		return err
	}
	defer metrics.ObserveKubeRequest("delete", ref.Kind, "delete "+ref.String())()

	r, err := c.resource(ref)
	if err != nil {
		return err
	}
	return r.Delete(ctx, ref.Name, metav1.DeleteOptions{})
}
