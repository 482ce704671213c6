// Copyright Contributors to the testsys project

package crdclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// ResolveTemplatedConfig substitutes every "${otherName.jsonPath}"
// placeholder string found (recursively) in rawConfig with the
// corresponding value from the named peer Resource's created-resource
// blob, per spec.md §4.2. Resolution fails if any referenced Resource is
// missing, not yet Completed, or the path does not resolve. Placeholders
// only ever reference Resources (the only object kind that writes a
// created-resource blob), so this is the one resolver both ResourceSpec's
// own Configuration and a Test's Configuration are run through before
// their agent Job is built.
func (c ResourceClient) ResolveTemplatedConfig(ctx context.Context, rawConfig *apiextensionsv1.JSON) (*apiextensionsv1.JSON, error) {
	if rawConfig == nil {
		return nil, nil
	}

	var value interface{}
	if err := json.Unmarshal(rawConfig.Raw, &value); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig", err)
	}

	resolved, err := c.resolveValue(ctx, value)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(resolved)
	if err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig", err)
	}
	return &apiextensionsv1.JSON{Raw: out}, nil
}

func (c ResourceClient) resolveValue(ctx context.Context, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return c.resolveString(ctx, v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			resolvedChild, err := c.resolveValue(ctx, child)
			if err != nil {
				return nil, err
			}
			out[k] = resolvedChild
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			resolvedChild, err := c.resolveValue(ctx, child)
			if err != nil {
				return nil, err
			}
			out[i] = resolvedChild
		}
		return out, nil
	default:
		return value, nil
	}
}

// parsePlaceholder matches a whole-string "${name.path.to.field}" value. Partial
// substitution within a larger string is not supported, matching the
// source project's templated-config contract.
func parsePlaceholder(s string) (name, path string, ok bool) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", "", false
	}
	inner := s[2 : len(s)-1]
	dot := strings.IndexByte(inner, '.')
	if dot < 0 {
		return "", "", false
	}
	return inner[:dot], inner[dot+1:], true
}

func (c ResourceClient) resolveString(ctx context.Context, s string) (interface{}, error) {
	name, path, ok := parsePlaceholder(s)
	if !ok {
		return s, nil
	}

	peer, err := c.Get(ctx, name)
	if err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig",
			fmt.Errorf("referenced resource %q not found: %w", name, err))
	}
	if peer.Status.Creation.State != v1alpha1.TaskStateCompleted {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig",
			fmt.Errorf("referenced resource %q has not completed creation (state=%s)", name, peer.Status.Creation.State))
	}
	if peer.Status.Creation.CreatedResource == nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig",
			fmt.Errorf("referenced resource %q has no created-resource blob", name))
	}

	var blob interface{}
	if err := json.Unmarshal(peer.Status.Creation.CreatedResource.Raw, &blob); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig", err)
	}

	resolved, err := walkPath(blob, path)
	if err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindSchema, "ResolveTemplatedConfig",
			fmt.Errorf("path %q did not resolve against resource %q: %w", path, name, err))
	}
	return resolved, nil
}

func walkPath(value interface{}, path string) (interface{}, error) {
	if path == "" {
		return value, nil
	}
	for _, segment := range strings.Split(path, ".") {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot descend into %q: not an object", segment)
		}
		next, ok := m[segment]
		if !ok {
			return nil, fmt.Errorf("field %q not present", segment)
		}
		value = next
	}
	return value, nil
}
