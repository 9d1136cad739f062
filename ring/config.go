package ring

// DefaultCapacity is the default ring.capacity configuration value (§6.3).
const DefaultCapacity = 65536

// Config mirrors the §6.3 configuration surface for a single ring: a
// power-of-two slot count and a consumer count bounded by it.
type Config struct {
	Capacity     uint64
	NumConsumers int
}

// NewConfig validates and returns a Config with the given capacity and a
// single consumer.
func NewConfig(capacity uint64) (Config, error) {
	if err := validateCapacity(capacity); err != nil {
		return Config{}, err
	}
	return Config{Capacity: capacity, NumConsumers: 1}, nil
}

// WithConsumers returns a copy of cfg with NumConsumers set, validated
// against cfg.Capacity.
func (cfg Config) WithConsumers(numConsumers int) (Config, error) {
	if err := validateConsumers(cfg.Capacity, numConsumers); err != nil {
		return Config{}, err
	}
	cfg.NumConsumers = numConsumers
	return cfg, nil
}
