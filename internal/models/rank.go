package models

// beltOrder — фиксированный порядок поясов от младшего к старшему.
var beltOrder = []string{
	"white", "yellow", "orange", "green", "blue", "purple", "brown", "red", "black",
}

var beltIndex = func() map[string]int {
	m := make(map[string]int, len(beltOrder))
	for i, r := range beltOrder {
		m[r] = i
	}
	return m
}()

// RankAtLeast сообщает, что пояс rank не ниже требуемого min.
// Неизвестный пояс участника считается младше любого требуемого;
// пустое требование всегда выполнено.
func RankAtLeast(rank, min string) bool {
	if min == "" {
		return true
	}
	minIdx, ok := beltIndex[min]
	if !ok {
		return true
	}
	rankIdx, ok := beltIndex[rank]
	if !ok {
		return false
	}
	return rankIdx >= minIdx
}

// KnownRank проверяет, что пояс входит в фиксированную последовательность.
func KnownRank(rank string) bool {
	_, ok := beltIndex[rank]
	return ok
}
