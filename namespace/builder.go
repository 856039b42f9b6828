// Package namespace constructs namespace-prefixed MQTT topics for the
// gateway's north-bound republish bridge, keeping one consistent prefixing
// scheme rather than letting each publisher hand-assemble topic strings.
package namespace

// Builder constructs namespace-prefixed MQTT topics.
type Builder struct {
	namespace string
	selector  string
}

// New creates a new namespace builder. selector may be empty.
func New(namespace, selector string) *Builder {
	return &Builder{namespace: namespace, selector: selector}
}

// TagTopic returns the topic for a tag value: {ns}[/{sel}]/{plc}/tags/{tag}
func (b *Builder) TagTopic(plc, tag string) string {
	return b.base() + "/" + plc + "/tags/" + tag
}

// HealthTopic returns the topic for health status: {ns}[/{sel}]/{plc}/health
func (b *Builder) HealthTopic(plc string) string {
	return b.base() + "/" + plc + "/health"
}

// Base returns the root topic prefix: {ns}[/{sel}]
func (b *Builder) Base() string {
	return b.base()
}

func (b *Builder) base() string {
	if b.selector != "" {
		return b.namespace + "/" + b.selector
	}
	return b.namespace
}
