package nbt_test

import (
	"bytes"
	"fmt"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

func Example() {
	doc := nbt.NewCompoundBuilder().
		PutString("name", "test").
		PutInt("value", 42).
		BuildImmutable()

	data, err := nbt.Marshal(doc)
	if err != nil {
		panic(err)
	}

	c, err := nbt.ReadCompound(kaitai.NewStream(bytes.NewReader(data)))
	if err != nil {
		panic(err)
	}
	fmt.Println(c.GetString("name"), c.GetInt("value"), c.GetIntOr("missing", -1))
	// Output: test 42 -1
}

func ExampleCollector() {
	data, err := nbt.Marshal(nbt.NewMutableCompound().PutInt("a", 1).PutInt("b", 2))
	if err != nil {
		panic(err)
	}

	c := nbt.NewCollector()
	if _, err := nbt.ParseDocument(kaitai.NewStream(bytes.NewReader(data)), c); err != nil {
		panic(err)
	}
	fmt.Println(c.Result().(nbt.Compound).Keys())
	// Output: [a b]
}
