package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventory_FoodCapacity(t *testing.T) {
	inv := New(Config{FoodCapacity: 3, UsingCapacity: true})

	assert.Zero(t, inv.AddFood(2))
	assert.False(t, inv.FoodFull())
	assert.Equal(t, 2, inv.AddFood(3), "excess above capacity is returned")
	assert.Equal(t, 3, inv.Food())
	assert.True(t, inv.FoodFull())

	assert.Equal(t, 3, inv.ClearFood())
	assert.Zero(t, inv.Food())
}

func TestInventory_Unlimited(t *testing.T) {
	inv := New(Config{FoodCapacity: 1})
	assert.Zero(t, inv.AddFood(50))
	assert.False(t, inv.FoodFull(), "an inventory without limits is never full")
	assert.Equal(t, 50, inv.Food())
}

func TestInventory_Treasure(t *testing.T) {
	inv := New(Config{TreasureCapacity: 10, UsingCapacity: true})
	assert.Zero(t, inv.AddTreasure(10))
	assert.True(t, inv.TreasureFull())
	assert.Equal(t, 10, inv.ClearTreasure())
	assert.False(t, inv.TreasureFull())
}

func TestInventory_RemoveFood(t *testing.T) {
	inv := New(Config{})
	inv.AddFood(2)
	assert.Equal(t, 1, inv.RemoveFood(1))
	assert.Equal(t, 1, inv.RemoveFood(5), "cannot remove more than is held")
	assert.Zero(t, inv.Food())
}
