// THIS FILE IS AUTO-GENERATED
package characteristic

const TypeBrightness = "8"

type Brightness struct {
	*Int
}

func NewBrightness() *Brightness {
	c := NewInt(TypeBrightness)
	c.Format = FormatInt32
	c.Permissions = []string{PermissionRead, PermissionWrite, PermissionEvents}
	c.SetMinValue(0)
	c.SetMaxValue(100)
	c.SetStepValue(1)
	c.Unit = UnitPercentage

	c.SetValue(100)

	return &Brightness{c}
}
