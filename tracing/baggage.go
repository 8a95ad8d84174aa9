package tracing

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/baggage"
)

// BaggageUserID is the baggage key carrying the simulated user id.
const BaggageUserID = "enduser.id"

// SetBaggage adds a key-value pair to the baggage in ctx.
//
// Keys must be W3C baggage tokens. Values are stored as given and
// percent-encoded on the wire. An invalid member leaves ctx untouched and
// returns an error.
func SetBaggage(ctx context.Context, key, value string) (context.Context, error) {
	member, err := baggage.NewMember(key, url.PathEscape(value))
	if err != nil {
		return ctx, fmt.Errorf("create baggage member: %w", err)
	}

	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx, fmt.Errorf("set baggage member: %w", err)
	}

	return baggage.ContextWithBaggage(ctx, bag), nil
}

// GetBaggage returns the value stored under key, or "".
func GetBaggage(ctx context.Context, key string) string {
	return baggage.FromContext(ctx).Member(key).Value()
}

// AllBaggage returns all baggage members as a map.
func AllBaggage(ctx context.Context) map[string]string {
	members := baggage.FromContext(ctx).Members()
	result := make(map[string]string, len(members))
	for _, m := range members {
		result[m.Key()] = m.Value()
	}

	return result
}
