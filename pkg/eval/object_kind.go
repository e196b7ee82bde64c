package eval

type ObjectKind uint8

const (
	NULL_KIND ObjectKind = iota
	BOOLEAN_KIND
	INTEGER_KIND
	FLOAT_KIND
	STRING_KIND
	LIST_KIND
	MAP_KIND
	SET_KIND
	FUNCTION_KIND
	BUILTIN_KIND
	CLASS_KIND
	INSTANCE_KIND
	INTERFACE_KIND
	ENUM_KIND
	FUTURE_KIND
	RETURN_KIND
	BREAK_KIND
	CONTINUE_KIND
	FAULT_KIND
)

func (k ObjectKind) String() string {
	switch k {
	case NULL_KIND:
		return "null"
	case BOOLEAN_KIND:
		return "bool"
	case INTEGER_KIND:
		return "int"
	case FLOAT_KIND:
		return "float"
	case STRING_KIND:
		return "string"
	case LIST_KIND:
		return "list"
	case MAP_KIND:
		return "map"
	case SET_KIND:
		return "set"
	case FUNCTION_KIND:
		return "function"
	case BUILTIN_KIND:
		return "builtin"
	case CLASS_KIND:
		return "class"
	case INSTANCE_KIND:
		return "instance"
	case INTERFACE_KIND:
		return "interface"
	case ENUM_KIND:
		return "enum"
	case FUTURE_KIND:
		return "future"
	case RETURN_KIND:
		return "return"
	case BREAK_KIND:
		return "break"
	case CONTINUE_KIND:
		return "continue"
	case FAULT_KIND:
		return "fault"
	}
	return "unknown"
}

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}

	BREAK    = &BreakSignal{}
	CONTINUE = &ContinueSignal{}
)

func boolObject(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

// typeName reports the language-level type of a value. Instances report
// their class name.
func typeName(obj Object) string {
	if inst, ok := obj.(*Instance); ok {
		return inst.Class.Name
	}
	return obj.Kind().String()
}
