package model

// ExecutionContext is a key-value store for sharing state across job and step executions.
type ExecutionContext map[string]interface{}

// ExecutionContextPromotion lists the step-level keys copied to the job ExecutionContext
// after a step completes. JobLevelKeys optionally renames a key on the way up.
type ExecutionContextPromotion struct {
	Keys         []string          `yaml:"keys,omitempty"`
	JobLevelKeys map[string]string `yaml:"job-level-keys,omitempty"`
}

// NewExecutionContext creates a new empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets a value in the ExecutionContext.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for key.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves the value for key as an int. int64 and float64 values are converted.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	switch v := ec[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	newEC := make(ExecutionContext, len(ec))
	for k, v := range ec {
		newEC[k] = v
	}
	return newEC
}

// Remove removes key from the ExecutionContext.
func (ec ExecutionContext) Remove(key string) {
	delete(ec, key)
}

// Promote copies the keys named by p from ec into target.
func (p *ExecutionContextPromotion) Promote(ec, target ExecutionContext) {
	if p == nil {
		return
	}
	for _, key := range p.Keys {
		val, ok := ec[key]
		if !ok {
			continue
		}
		targetKey := key
		if renamed, ok := p.JobLevelKeys[key]; ok && renamed != "" {
			targetKey = renamed
		}
		target[targetKey] = val
	}
}
