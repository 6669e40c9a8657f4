package pgmgo_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/pgmgo"
)

func ExampleNewSet() {
	keys := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23}

	set, err := pgmgo.NewSet(keys, pgmgo.WithEpsilon(4))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(set.LowerBoundPos(7))
	fmt.Println(set.Contains(9))
	fmt.Println(set.Count(11))
	// Output:
	// 3
	// false
	// 1
}

func ExampleNewMap() {
	m, err := pgmgo.NewMap[uint64, string]()
	if err != nil {
		log.Fatal(err)
	}

	_ = m.InsertOrAssign(3, "three")
	_ = m.InsertOrAssign(1, "one")
	_ = m.InsertOrAssign(2, "two")
	_ = m.Erase(2)

	for k, v := range m.All() {
		fmt.Println(k, v)
	}
	// Output:
	// 1 one
	// 3 three
}
