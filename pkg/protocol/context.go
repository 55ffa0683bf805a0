package protocol

import "context"

type organizationKey struct{}

// WithOrganization scopes ctx to the tenant whose workflow is running, so
// collaborators can address the right organization without widening every
// call signature.
func WithOrganization(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, organizationKey{}, organizationID)
}

// OrganizationFrom returns the tenant set by WithOrganization, or "".
func OrganizationFrom(ctx context.Context) string {
	id, _ := ctx.Value(organizationKey{}).(string)

	return id
}
