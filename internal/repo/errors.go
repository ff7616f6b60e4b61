package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")

	// ErrDuplicate indica representante já cadastrado com o mesmo email.
	ErrDuplicate = errors.New("registro duplicado")

	// ErrLockTimeout indica que o lock do arquivo não foi obtido dentro do prazo.
	ErrLockTimeout = errors.New("tempo esgotado aguardando lock do banco")

	// ErrStorage agrupa falhas de leitura/escrita do arquivo de dados.
	ErrStorage = errors.New("falha de armazenamento")
)

// StorageError descreve falha ao ler ou gravar o documento JSON.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is permite errors.Is(err, ErrStorage).
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
