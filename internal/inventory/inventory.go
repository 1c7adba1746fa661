package inventory

// Config sets the capacities of an Inventory.
type Config struct {
	FoodCapacity     int  `yaml:"food_capacity" mapstructure:"food_capacity"`
	TreasureCapacity int  `yaml:"treasure_capacity" mapstructure:"treasure_capacity"`
	UsingCapacity    bool `yaml:"using_capacity" mapstructure:"using_capacity"`
}

// Inventory tracks the resources an agent carries.
type Inventory struct {
	cfg      Config
	food     int
	treasure int
}

// New creates an empty inventory.
func New(cfg Config) *Inventory {
	return &Inventory{cfg: cfg}
}

// Config returns the capacity settings.
func (i *Inventory) Config() Config { return i.cfg }

// Food returns the food carried.
func (i *Inventory) Food() int { return i.food }

// Treasure returns the treasure carried.
func (i *Inventory) Treasure() int { return i.treasure }

// HasReachedCapacity reports whether current is at capacity. Without capacity
// limits an inventory is never full.
func (i *Inventory) HasReachedCapacity(current, capacity int) bool {
	return i.cfg.UsingCapacity && current >= capacity
}

// FoodFull reports whether no more food fits.
func (i *Inventory) FoodFull() bool { return i.HasReachedCapacity(i.food, i.cfg.FoodCapacity) }

// TreasureFull reports whether no more treasure fits.
func (i *Inventory) TreasureFull() bool {
	return i.HasReachedCapacity(i.treasure, i.cfg.TreasureCapacity)
}

// AddFood stores food and returns the excess that did not fit.
func (i *Inventory) AddFood(amount int) int {
	var excess int
	i.food, excess = add(i.food, amount, i.cfg.FoodCapacity, i.cfg.UsingCapacity)
	return excess
}

// AddTreasure stores treasure and returns the excess that did not fit.
func (i *Inventory) AddTreasure(amount int) int {
	var excess int
	i.treasure, excess = add(i.treasure, amount, i.cfg.TreasureCapacity, i.cfg.UsingCapacity)
	return excess
}

// RemoveFood takes up to amount food and returns how much was actually removed.
func (i *Inventory) RemoveFood(amount int) int {
	if amount > i.food {
		amount = i.food
	}
	i.food -= amount
	return amount
}

// ClearFood empties the food store and returns what was held.
func (i *Inventory) ClearFood() int {
	n := i.food
	i.food = 0
	return n
}

// ClearTreasure empties the treasure store and returns what was held.
func (i *Inventory) ClearTreasure() int {
	n := i.treasure
	i.treasure = 0
	return n
}

func add(current, amount, capacity int, limited bool) (total, excess int) {
	total = current + amount
	if total < 0 {
		total = 0
	}
	if limited && total > capacity {
		excess = total - capacity
		total = capacity
	}
	return total, excess
}
