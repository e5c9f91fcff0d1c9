package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasfiat-brain/internal/models"
)

type staticSource struct{ snap *Snapshot }

func (s staticSource) Snapshot() *Snapshot { return s.snap }

func catalog() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{Slug: "joma-white", Name: "حذاء جوما أبيض", BrandStd: "joma", Sizes: "40,41,42", Price: 199, Gender: "رجالي"},
		{Slug: "joma-black", Name: "حذاء جوما أسود", BrandStd: "joma", Sizes: "42,43", Price: 249, Gender: "رجالي"},
		{Slug: "skechers-go-walk", Name: "سكيتشرز جو ووك", BrandStd: "skechers", Keywords: "مشي,رياضي", Sizes: "37,38,39", Price: 320, OldPrice: 400, HasDiscount: true, DiscountPercent: 20, Gender: "نسائي"},
		{Slug: "crocs-kids", Name: "كروكس أطفال", BrandStd: "crocs", Sizes: "28,29,30", Price: 120, AgeGroup: "kids"},
		{Slug: "policy-shipping", Name: "سياسة التوصيل", BrandTags: "سياسات", Keywords: "توصيل,شحن"},
		{Slug: "branch-nablus", Name: "فرع نابلس", BrandTags: "فروع"},
	}
}

func newTestEngine(items []models.KnowledgeItem) *Engine {
	snap := NewSnapshot(items, time.Now())
	return NewEngine(staticSource{snap: snap}, DefaultWeights())
}

func slugs(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Slug)
	}
	return out
}

func TestEngine_ClarifyBetweenCloseCandidates(t *testing.T) {
	e := newTestEngine(catalog())

	out := e.Search("جوما")
	require.Equal(t, Clarify, out.Kind)
	assert.Equal(t, []string{"joma-white", "joma-black"}, slugs(out.Options))
	assert.Nil(t, out.Item)
}

func TestEngine_ExactNameHit(t *testing.T) {
	e := newTestEngine(catalog())

	out := e.Search("حذاء جوما ابيض")
	require.Equal(t, Hit, out.Kind)
	assert.Equal(t, "joma-white", out.Item.Slug)
}

func TestEngine_FastPaths(t *testing.T) {
	e := newTestEngine(catalog())

	t.Run("product url", func(t *testing.T) {
		out := e.Search("شو رأيك بهاد https://shop.example/product/joma-black?x=1")
		require.Equal(t, Hit, out.Kind)
		assert.Equal(t, "joma-black", out.Item.Slug)
	})

	t.Run("slug as query", func(t *testing.T) {
		out := e.Search("  Skechers-Go-Walk ")
		require.Equal(t, Hit, out.Kind)
		assert.Equal(t, "skechers-go-walk", out.Item.Slug)
	})

	t.Run("unknown url slug falls through", func(t *testing.T) {
		out := e.Search("/product/missing-item")
		assert.Equal(t, None, out.Kind)
	})
}

func TestEngine_SizeFilter(t *testing.T) {
	e := newTestEngine(catalog())

	out := e.Search("جوما مقاس 41")
	assert.Equal(t, "41", out.AskedSize)
	require.Equal(t, Hit, out.Kind)
	assert.Equal(t, "joma-white", out.Item.Slug)

	out = e.Search("جوما مقاس 43")
	require.Equal(t, Hit, out.Kind)
	assert.Equal(t, "joma-black", out.Item.Slug)

	out = e.Search("جوما مقاس 50")
	assert.Equal(t, None, out.Kind)
}

func TestEngine_SizeFilterFoldsFeedDigits(t *testing.T) {
	items := catalog()
	items[0].Sizes = "٤٠,٤١,٤٢"
	e := newTestEngine(items)

	for _, q := range []string{"جوما مقاس 41", "جوما مقاس ٤١"} {
		out := e.Search(q)
		require.Equal(t, Hit, out.Kind, q)
		assert.Equal(t, "joma-white", out.Item.Slug, q)
	}
}

func TestEngine_SizeFilterSparesPolicyItems(t *testing.T) {
	e := newTestEngine(catalog())

	out := e.Search("سياسة التوصيل 41")
	require.Equal(t, Hit, out.Kind)
	assert.Equal(t, "policy-shipping", out.Item.Slug)
}

func TestEngine_NoMatchBelowThreshold(t *testing.T) {
	e := newTestEngine(catalog())

	for _, q := range []string{"ساعة ذكية", "", "   ", "\xff\xfe", "شو"} {
		out := e.Search(q)
		assert.Equal(t, None, out.Kind, q)
		assert.Nil(t, out.Item, q)
		assert.Empty(t, out.Options, q)
	}
}

func TestEngine_EmptySnapshot(t *testing.T) {
	e := NewEngine(staticSource{}, DefaultWeights())
	assert.Equal(t, None, e.Search("جوما").Kind)
}

func TestEngine_SignalsBreakTies(t *testing.T) {
	e := newTestEngine(catalog())

	t.Run("price near", func(t *testing.T) {
		out := e.Search("جوما ب 250 شيكل")
		require.Equal(t, Hit, out.Kind)
		assert.Equal(t, "joma-black", out.Item.Slug)
		assert.Empty(t, out.AskedSize)
	})

	t.Run("discount", func(t *testing.T) {
		w := DefaultWeights()
		plain := w.TokenName + w.TokenAny
		e := newTestEngine([]models.KnowledgeItem{
			{Slug: "a", Name: "صندل صيفي", HasDiscount: true, DiscountPercent: 30},
			{Slug: "b", Name: "صندل صيفي"},
		})
		out := e.Search("صندل عليه خصم")
		require.Equal(t, Hit, out.Kind)
		assert.Equal(t, "a", out.Item.Slug)
		assert.Equal(t, plain+w.Discount+w.DeepDiscount, out.Score)
	})
}

func TestEngine_AudienceBonus(t *testing.T) {
	e := newTestEngine([]models.KnowledgeItem{
		{Slug: "m", Name: "بوط جلد", Gender: "رجالي"},
		{Slug: "f", Name: "بوط جلد", Gender: "نسائي"},
	})

	out := e.Search("بوط جلد نسائي")
	require.Equal(t, Hit, out.Kind)
	assert.Equal(t, "f", out.Item.Slug)
}

func TestEngine_HitAlwaysFromSnapshot(t *testing.T) {
	items := catalog()
	snap := NewSnapshot(items, time.Now())
	e := NewEngine(staticSource{snap: snap}, DefaultWeights())

	queries := []string{
		"جوما", "حذاء جوما ابيض", "سكيتشرز", "كروكس اطفال", "فرع نابلس",
		"سياسة التوصيل", "joma-black", "مشي رياضي 38", "crocs", "skechers 320 شيكل",
	}
	for _, q := range queries {
		out := e.Search(q)
		if out.Kind != Hit {
			continue
		}
		_, ok := snap.Item(out.Item.Slug)
		assert.True(t, ok, q)
	}
}

func TestEngine_ClarifyCapsOptions(t *testing.T) {
	var items []models.KnowledgeItem
	for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
		items = append(items, models.KnowledgeItem{Slug: "mizuno-" + s, Name: "ميزونو " + s})
	}
	e := newTestEngine(items)

	out := e.Search("ميزونو")
	require.Equal(t, Clarify, out.Kind)
	assert.Len(t, out.Options, DefaultWeights().MaxOptions)
	assert.Equal(t, "mizuno-a", out.Options[0].Slug)
}

// The defaults are calibration points; changing them changes answers.
func TestDefaultWeights_Calibration(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 25, w.MinScore)
	assert.Equal(t, 5, w.ClarifyGap)
	assert.Equal(t, 80, w.ExactName)
	assert.Equal(t, 90, w.SlugExact)
	assert.Equal(t, 12, w.TokenSizes)
}

func TestSnapshot(t *testing.T) {
	items := catalog()
	items = append(items, models.KnowledgeItem{Slug: "JOMA-WHITE", Name: "duplicate"})
	snap := NewSnapshot(items, time.Now())

	assert.Equal(t, len(catalog()), snap.Len())
	assert.Equal(t, 1, snap.Duplicates())
	it, ok := snap.Item("Joma-White")
	require.True(t, ok)
	assert.Equal(t, "حذاء جوما أبيض", it.Name)

	branches := snap.BranchItems()
	require.Len(t, branches, 1)
	assert.Equal(t, "branch-nablus", branches[0].Slug)

	assert.True(t, IsPolicyLike(&models.KnowledgeItem{Slug: "info-about"}))
	assert.True(t, IsPolicyLike(&models.KnowledgeItem{Slug: "x", BrandTags: "سياسات,عام"}))
	assert.False(t, IsPolicyLike(&models.KnowledgeItem{Slug: "joma-white"}))

	var nilSnap *Snapshot
	assert.Equal(t, 0, nilSnap.Len())
	_, ok = nilSnap.Item("x")
	assert.False(t, ok)
}

func TestDetectSignals(t *testing.T) {
	sig := DetectSignals("بدي حذاء رجالي مقاس ٤٢ بسعر 150₪ عليه خصم")
	assert.Equal(t, "42", sig.Size)
	assert.Equal(t, 150.0, sig.Amount)
	assert.Equal(t, AudienceMale, sig.Audience)
	assert.True(t, sig.Discount)
	assert.True(t, sig.Any())

	sig = DetectSignals("حذاء 99 شيكل")
	assert.Empty(t, sig.Size, "prices are not sizes")
	assert.Equal(t, 99.0, sig.Amount)

	assert.Equal(t, "41.5", DetectSignals("مقاس 41.5").Size)
	assert.Equal(t, "joma-1", DetectSignals("https://x.test/product/JOMA-1").URLSlug)
	assert.False(t, DetectSignals("جوما").Any())

	assert.True(t, IsOnlySize(" 41 "))
	assert.True(t, IsOnlySize("٤١"))
	assert.False(t, IsOnlySize("مقاس 41"))
	assert.False(t, IsOnlySize("410"))
	assert.True(t, HasMoney("بحدود 200 شيكل"))
	assert.False(t, HasMoney("مقاس 41"))
}
