// THIS FILE IS AUTO-GENERATED
package characteristic

const TypeIdentify = "14"

type Identify struct {
	*Bool
}

func NewIdentify() *Identify {
	c := NewBool(TypeIdentify)
	c.Format = FormatBool
	c.Permissions = []string{PermissionWrite}

	c.SetValue(false)

	return &Identify{c}
}
