package reports

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var reportBuildGroup singleflight.Group

// singleflightBuild deduplicates concurrent report builds for the same key.
// The caller's context still controls its own wait.
func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := reportBuildGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
