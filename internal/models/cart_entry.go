package models

// CartEntry 本地购物车条目，按 productId 唯一
type CartEntry struct {
	ProductID int `json:"productId"` // 商品ID
	Quantity  int `json:"quantity"`  // 数量，始终 >= 1
}

// Valid 条目是否满足最小约束
func (e CartEntry) Valid() bool {
	return e.ProductID >= 1 && e.Quantity >= 1
}

// NormalizeCart 丢弃非法条目并合并重复商品
func NormalizeCart(entries []CartEntry) []CartEntry {
	result := make([]CartEntry, 0, len(entries))
	index := make(map[int]int, len(entries))
	for _, entry := range entries {
		if !entry.Valid() {
			continue
		}
		if pos, ok := index[entry.ProductID]; ok {
			result[pos].Quantity += entry.Quantity
			continue
		}
		index[entry.ProductID] = len(result)
		result = append(result, entry)
	}
	return result
}

// CartProductIDs 返回去重后的商品ID，保持首次出现顺序
func CartProductIDs(entries []CartEntry) []int {
	ids := make([]int, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.ProductID]; ok {
			continue
		}
		seen[entry.ProductID] = struct{}{}
		ids = append(ids, entry.ProductID)
	}
	return ids
}

// CartQuantity 购物车商品总件数
func CartQuantity(entries []CartEntry) int {
	total := 0
	for _, entry := range entries {
		total += entry.Quantity
	}
	return total
}
