package accessory

// Accessory categories, advertised in the Bonjour "ci" record.
const (
	TypeOther              byte = 1
	TypeBridge             byte = 2
	TypeFan                byte = 3
	TypeGarageDoorOpener   byte = 4
	TypeLightbulb          byte = 5
	TypeDoorLock           byte = 6
	TypeOutlet             byte = 7
	TypeSwitch             byte = 8
	TypeThermostat         byte = 9
	TypeSensor             byte = 10
	TypeSecuritySystem     byte = 11
	TypeDoor               byte = 12
	TypeWindow             byte = 13
	TypeWindowCovering     byte = 14
	TypeProgrammableSwitch byte = 15
	TypeIPCamera           byte = 17
	TypeAirPurifier        byte = 19
	TypeHeater             byte = 20
	TypeAirConditioner     byte = 21
	TypeHumidifier         byte = 22
	TypeDehumidifier       byte = 23
	TypeSprinklers         byte = 28
	TypeFaucets            byte = 29
	TypeShowerSystems      byte = 30
)
