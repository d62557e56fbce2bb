package pool_test

import (
	"context"
	"testing"

	"github.com/arbordev/arbor/pkg/adapters/memory"
	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/instance"
	"github.com/arbordev/arbor/pkg/pool"
	"github.com/arbordev/arbor/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bulletScene = `{
  "name": "Bullet",
  "nodes": [
    {"name": "Bullet", "type": "Node2D", "properties": {"speed": 400}}
  ]
}`

func bulletCache(t *testing.T) *scene.Cache {
	t.Helper()
	loader := memory.NewLoader(map[string]string{"Bullet.scene": bulletScene})
	return scene.NewCache(loader, scene.NewDependencyGraph())
}

func newBullet(t *testing.T, cache *scene.Cache) *instance.Instance {
	t.Helper()
	inst, err := instance.New(context.Background(), cache, "Bullet.scene", "Bullet")
	require.NoError(t, err)
	return inst
}

func TestCheckoutMissThenHit(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New()
	ctx := context.Background()

	_, ok := p.Checkout("Bullet.scene")
	assert.False(t, ok, "empty pool must miss")

	inst := newBullet(t, cache)
	stored, err := p.Return(ctx, inst)
	require.NoError(t, err)
	require.True(t, stored)
	assert.Equal(t, instance.StatePooled, inst.State())
	assert.Equal(t, 1, p.Size("Bullet.scene"))

	got, ok := p.Checkout("Bullet.scene")
	require.True(t, ok)
	assert.Same(t, inst, got)
	assert.Equal(t, instance.StateActive, got.State())
	assert.True(t, got.FromPool())
	assert.Zero(t, p.Size("Bullet.scene"))
}

func TestReturnedInstancesAreReset(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New()
	ctx := context.Background()

	world := domain.NewNode("World", "Node")
	inst := newBullet(t, cache)
	world.AddChild(inst.Root())
	require.NoError(t, inst.ApplyPropertyOverride("Bullet/speed", domain.IntValue(900)))

	stored, err := p.Return(ctx, inst)
	require.NoError(t, err)
	require.True(t, stored)

	got, ok := p.Checkout("Bullet.scene")
	require.True(t, ok)
	assert.Empty(t, got.OverrideDiff())
	assert.Nil(t, got.Root().Parent)

	speed, _ := got.Root().FindNode("Bullet").Property("speed")
	assert.Equal(t, int64(400), speed.Int())
}

func TestCapacityFiveScenario(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New(pool.WithCapacity(5))
	ctx := context.Background()

	// Warm with five spares.
	for i := 0; i < 5; i++ {
		stored, err := p.Return(ctx, newBullet(t, cache))
		require.NoError(t, err)
		require.True(t, stored)
	}

	var live []*instance.Instance
	for i := 0; i < 5; i++ {
		inst, ok := p.Checkout("Bullet.scene")
		require.True(t, ok)
		live = append(live, inst)
	}

	// Sixth checkout misses without error; the caller creates fresh.
	inst, ok := p.Checkout("Bullet.scene")
	assert.False(t, ok)
	assert.Nil(t, inst)
	live = append(live, newBullet(t, cache))

	stored := 0
	for _, inst := range live {
		ok, err := p.Return(ctx, inst)
		require.NoError(t, err)
		if ok {
			stored++
		} else {
			inst.MarkDestroyed()
		}
	}
	assert.Equal(t, 5, stored)
	assert.Equal(t, 5, p.Size("Bullet.scene"))
	assert.Equal(t, instance.StateDestroyed, live[5].State())
}

func TestGrowthOnRepeatedExhaustion(t *testing.T) {
	var alerts []pool.ExhaustionAlert
	p := pool.New(
		pool.WithCapacity(5),
		pool.WithGrowthThreshold(3),
		pool.WithMaxCapacity(10),
		pool.WithAlertFunc(func(a pool.ExhaustionAlert) { alerts = append(alerts, a) }),
	)

	for i := 0; i < 3; i++ {
		_, ok := p.Checkout("Bullet.scene")
		assert.False(t, ok)
	}
	require.Len(t, alerts, 3)
	assert.Equal(t, 5, alerts[1].NewCap, "below the threshold capacity holds")
	assert.Equal(t, 10, alerts[2].NewCap, "third consecutive miss doubles capacity")
	assert.Equal(t, 10, p.Capacity("Bullet.scene"))

	// Growth is bounded by the max.
	for i := 0; i < 3; i++ {
		p.Checkout("Bullet.scene")
	}
	assert.Equal(t, 10, p.Capacity("Bullet.scene"))
}

func TestMissCounterResetsOnHit(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New(pool.WithCapacity(5), pool.WithGrowthThreshold(3))
	ctx := context.Background()

	p.Checkout("Bullet.scene")
	p.Checkout("Bullet.scene")

	stored, err := p.Return(ctx, newBullet(t, cache))
	require.NoError(t, err)
	require.True(t, stored)
	_, ok := p.Checkout("Bullet.scene")
	require.True(t, ok)

	// The hit reset the streak; one more miss must not grow capacity.
	p.Checkout("Bullet.scene")
	assert.Equal(t, 5, p.Capacity("Bullet.scene"))
}

func TestTrim(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New(pool.WithCapacity(8), pool.WithLowWater(2))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		stored, err := p.Return(ctx, newBullet(t, cache))
		require.NoError(t, err)
		require.True(t, stored)
	}

	assert.Equal(t, 4, p.Trim())
	assert.Equal(t, 2, p.Size("Bullet.scene"))
	assert.Zero(t, p.Trim())
}

func TestReturnRejectsUnpoolable(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New()
	ctx := context.Background()

	broken := newBullet(t, cache)
	broken.BreakInstance()
	_, err := p.Return(ctx, broken)
	require.Error(t, err)

	dead := newBullet(t, cache)
	dead.MarkDestroyed()
	_, err = p.Return(ctx, dead)
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	cache := bulletCache(t)
	p := pool.New()
	ctx := context.Background()

	inst := newBullet(t, cache)
	stored, err := p.Return(ctx, inst)
	require.NoError(t, err)
	require.True(t, stored)

	p.Clear()
	assert.Zero(t, p.TotalPooled())
	assert.Equal(t, instance.StateDestroyed, inst.State())
}
