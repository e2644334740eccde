package command

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var (
	// registry хранит зарегистрированные обработчики команд.
	registry = make(map[string]Handler)
	mu       sync.RWMutex
	// commandNamePattern — строгий kebab-case: начинается с буквы,
	// без завершающего и двойного дефиса.
	commandNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
)

// Register регистрирует обработчик команды в глобальном реестре.
// Вызывается из RegisterCmd() функций пакетов-обработчиков.
//
// Возвращает ошибку, если:
//   - h == nil
//   - h.Name() пустое или не в kebab-case
//   - команда с таким именем уже зарегистрирована
//
//	func RegisterCmd() error {
//	    return command.Register(&Handler{})
//	}
func Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("command: nil handler")
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("command: empty handler name")
	}
	if !commandNamePattern.MatchString(name) {
		return fmt.Errorf("command: invalid handler name format (must be kebab-case): %s", name)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("command: duplicate handler registration for %s", name)
	}
	registry[name] = h
	return nil
}

// Get возвращает обработчик команды по имени.
func Get(name string) (Handler, bool) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := registry[name]
	return h, ok
}

// All возвращает копию всех зарегистрированных обработчиков.
func All() map[string]Handler {
	mu.RLock()
	defer mu.RUnlock()
	result := make(map[string]Handler, len(registry))
	for k, v := range registry {
		result[k] = v
	}
	return result
}

// Names возвращает отсортированный список имён зарегистрированных команд.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clearRegistry очищает реестр. Используется только в тестах.
func clearRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Handler)
}
