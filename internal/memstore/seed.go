package memstore

import (
	"time"

	"github.com/productstore/backend/internal/accounts"
	"github.com/productstore/backend/internal/catalog"
)

// adminHash is bcrypt("admin123"), cost 12.
const adminHash = "$2b$12$YT2ml5.YKleu57yqllugc.9e/paqf7NKKuyS//iqoEaWMkTLP88Zm"

// Seed loads the demo catalog and the admin account used when no database
// is configured.
func (s *Store) Seed() {
	now := time.Now().UTC()

	s.mu.Lock()
	s.accounts["1"] = &accounts.Account{
		ID:           "1",
		Username:     "admin",
		Email:        "admin@productstore.com",
		PasswordHash: adminHash,
		CreatedAt:    now,
	}
	s.mu.Unlock()

	demo := []catalog.Product{
		{
			ID:          "1",
			Name:        "Wireless Bluetooth Headphones",
			Description: "High-quality wireless headphones with noise cancellation and 30-hour battery life.",
			PriceCents:  9999,
			Category:    "Electronics",
			ImageURL:    "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&h=400&fit=crop",
			Stock:       50,
		},
		{
			ID:          "2",
			Name:        "Smartphone Stand",
			Description: "Adjustable aluminum smartphone stand compatible with all phone sizes.",
			PriceCents:  2499,
			Category:    "Accessories",
			ImageURL:    "https://images.unsplash.com/photo-1512499617640-c74ae3a79d37?w=400&h=400&fit=crop",
			Stock:       100,
		},
		{
			ID:          "3",
			Name:        "Organic Cotton T-Shirt",
			Description: "Comfortable and sustainable organic cotton t-shirt available in multiple colors.",
			PriceCents:  2999,
			Category:    "Clothing",
			ImageURL:    "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400&h=400&fit=crop",
			Stock:       200,
		},
		{
			ID:          "4",
			Name:        "Coffee Mug",
			Description: "Ceramic coffee mug with ergonomic handle. Perfect for your morning coffee or tea.",
			PriceCents:  1499,
			Category:    "Home & Kitchen",
			ImageURL:    "https://images.unsplash.com/photo-1514228742587-6b1558fcf93a?w=400&h=400&fit=crop",
			Stock:       75,
		},
		{
			ID:          "5",
			Name:        "Yoga Mat",
			Description: "Premium non-slip yoga mat made from eco-friendly materials.",
			PriceCents:  3999,
			Category:    "Sports & Fitness",
			ImageURL:    "https://images.unsplash.com/photo-1544367567-0f2fcb009e0b?w=400&h=400&fit=crop",
			Stock:       30,
		},
		{
			ID:          "6",
			Name:        "Wireless Mouse",
			Description: "Ergonomic wireless mouse with precision tracking and long battery life.",
			PriceCents:  3499,
			Category:    "Electronics",
			ImageURL:    "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=400&h=400&fit=crop",
			Stock:       80,
		},
	}

	s.mu.Lock()
	for i := range demo {
		p := demo[i]
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = &productEntry{p: p}
	}
	s.mu.Unlock()
}
